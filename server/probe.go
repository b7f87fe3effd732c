package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/go-mc/motion/protocol"
	"github.com/go-mc/motion/server/slp"
	"go.uber.org/zap"
)

// Probe asks a downstream for its status the way a client's server list does.
func Probe(ctx context.Context, address string, timeout time.Duration) (*slp.ServerListPing, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	conn, err := mcnet.DialMCTimeout(address, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	_ = conn.Socket.SetDeadline(time.Now().Add(timeout))

	// version -1 is what clients send when they only want to ping
	var version protocol.ProtocolVersion = -1
	if err := sendHandshakePacket(conn, version, host, uint16(port), protocol.NextStatus); err != nil {
		return nil, err
	}
	if err := conn.WritePacket(pk.Marshal(version.StatusRequest())); err != nil {
		return nil, err
	}

	var pkt pk.Packet
	if err := conn.ReadPacket(&pkt); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if pkt.ID != version.StatusResponse() {
		return nil, fmt.Errorf("invalid packet id while fetching status: 0x%02X", pkt.ID)
	}
	var str pk.String
	if err := pkt.Scan(&str); err != nil {
		return nil, err
	}
	var status slp.ServerListPing
	if err := json.Unmarshal([]byte(str), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func sendHandshakePacket(conn *mcnet.Conn, version protocol.ProtocolVersion, host string, port uint16, next protocol.NextState) error {
	return conn.WritePacket(pk.Marshal(
		version.Handshake(),
		pk.VarInt(version),
		pk.String(host),
		pk.UnsignedShort(port),
		pk.VarInt(next),
	))
}

// ProbeAll logs the status of every downstream. Failures are logged, not returned.
func ProbeAll(ctx context.Context, log *zap.Logger, downstreams []Downstream, timeout time.Duration) {
	for _, d := range downstreams {
		status, err := Probe(ctx, d.Address, timeout)
		if err != nil {
			log.Warn("downstream unreachable", zap.String("name", d.Name), zap.String("address", d.Address), zap.Error(err))
			continue
		}
		log.Info("downstream online",
			zap.String("name", d.Name),
			zap.String("version", status.Version.Name),
			zap.Int("protocol", status.Version.Protocol),
			zap.String("players", status.PlayerCount()),
			zap.String("motd", status.MOTD()))
	}
}
