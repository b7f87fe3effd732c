// Package slp decodes the parts of a Server List Ping status response that
// the downstream status check reports.
package slp

import (
	"fmt"

	"github.com/Tnze/go-mc/chat"
)

// ServerListPing is the status JSON. Player samples and the favicon are not
// decoded.
type ServerListPing struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description chat.Message `json:"description"`
}

// MOTD is the description without formatting codes.
func (p *ServerListPing) MOTD() string {
	return p.Description.ClearString()
}

func (p *ServerListPing) PlayerCount() string {
	return fmt.Sprintf("%d/%d", p.Players.Online, p.Players.Max)
}
