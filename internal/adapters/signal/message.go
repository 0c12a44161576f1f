package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avelis/notedrop/internal/domain"
)

// handleSend routes a note into the sender's room. Content stays
// opaque end to end; only the kind is checked.
func (ctl *Controller) handleSend(connID domain.ConnID, c *WsConn, data []byte) {
	type sendPayload struct {
		Type    string `json:"type"`
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad send payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	kind := domain.MessageKind(p.Kind)
	if !kind.Valid() {
		ctl.sendError(c, "bad_payload")
		return
	}
	if !ctl.Limiter.Allow(connID) {
		log.Warn().Str("module", "signal").Str("conn", string(connID)).Msg("message rate limited")
		ctl.sendError(c, "rate_limited")
		return
	}
	ctl.Coord.Send(connID, kind, p.Content)
}

func (ctl *Controller) handlePing(c *WsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	})
}
