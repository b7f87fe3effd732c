package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	"github.com/go-mc/motion/protocol"
	"github.com/go-mc/motion/tunnel"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server accepts client connections and tunnels each one to a downstream.
type Server struct {
	config   *Config
	log      *zap.Logger
	registry *Registry
	resolver *Resolver
	limiter  *rate.Limiter

	active   atomic.Int64
	sessions sync.WaitGroup
}

func NewServer(config *Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.ConnectionRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.ConnectionRateLimit), max(1, int(config.ConnectionRateLimit)))
	}
	return &Server{
		config:   config,
		log:      log,
		registry: NewRegistry(config.Downstreams),
		resolver: NewResolver(config.ResolveCacheTTL),
		limiter:  limiter,
	}
}

// ActiveSessions is the number of tunnels currently established.
func (s *Server) ActiveSessions() int64 {
	return s.active.Load()
}

// Start binds the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	l, err := mcnet.ListenMC(s.config.BindAddress)
	if err != nil {
		return err
	}
	s.log.Info("listening", zap.Stringer("address", l.Addr()))
	if s.config.ProbeDownstreams {
		go ProbeAll(ctx, s.log.Named("probe"), s.registry.All(), s.config.DialTimeout)
	}
	return s.Serve(ctx, l)
}

// Serve runs the accept loop on l. It closes l and waits for open sessions
// once ctx is done. A failing session never stops the loop.
func (s *Server) Serve(ctx context.Context, l *mcnet.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()
	defer s.sessions.Wait()

	var backoff time.Duration
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			backoff = nextAcceptBackoff(backoff)
			s.log.Warn("error accepting connection", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.handle(ctx, conn.Socket)
		}()
	}
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// nextAcceptBackoff doubles the wait after each consecutive accept failure.
func nextAcceptBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	return min(2*d, maxAcceptBackoff)
}

func (s *Server) handle(ctx context.Context, client net.Conn) {
	log := s.log.With(zap.Stringer("client", client.RemoteAddr()))
	downstream, ok := s.registry.Default()
	if !ok {
		log.Error("no downstream to connect to")
		_ = client.Close()
		return
	}
	log = log.With(zap.String("downstream", downstream.Name))

	backend, err := s.dial(downstream)
	if err != nil {
		log.Warn("could not connect to downstream", zap.String("address", downstream.Address), zap.Error(err))
		_ = client.Close()
		return
	}

	t := tunnel.New(client.RemoteAddr(), log)
	t.SetupListener(&sessionListener{log: log})
	s.active.Add(1)
	defer s.active.Add(-1)
	log.Debug("session opened")
	_ = t.Establish(ctx, client, backend)
}

func (s *Server) dial(d Downstream) (net.Conn, error) {
	addr, err := s.resolver.Resolve(d.Address)
	if err != nil {
		return nil, err
	}
	conn, err := mcnet.DialMCTimeout(addr.String(), s.config.DialTimeout)
	if err != nil {
		s.resolver.Forget(d.Address)
		return nil, err
	}
	return conn.Socket, nil
}

type sessionListener struct {
	log *zap.Logger
}

func (l *sessionListener) OnStateTransition(_ *tunnel.Tunnel, from, to protocol.GameState) {
	if to == protocol.StatePlay {
		l.log.Debug("player entered play")
	}
}

func (l *sessionListener) OnLogin(t *tunnel.Tunnel, username string, id uuid.UUID) {
	l.log.Info("player logging in", zap.String("player", username), zap.Stringer("uuid", id))
	if t.TunnelState().OnlineClient {
		l.log.Warn("client uses an online account, backend data is keyed by the offline uuid",
			zap.String("player", username))
	}
}

func (l *sessionListener) OnClose(t *tunnel.Tunnel, err error) {
	fields := []zap.Field{
		zap.Stringer("upstream", t.UpstreamAddr()),
		zap.Stringer("state", t.State().GameState),
	}
	if name := t.TunnelState().Username; name != nil {
		fields = append(fields, zap.String("player", *name))
	}
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		l.log.Info("session closed", fields...)
	default:
		l.log.Warn("session closed with error", append(fields, zap.Error(err))...)
	}
}
