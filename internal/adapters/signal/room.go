package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avelis/notedrop/internal/domain"
)

// wireError maps the store's error taxonomy onto caller-scoped wire
// codes. Everything here is recoverable; nothing is ever broadcast to
// third parties.
func wireError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNameInvalid):
		return "name_invalid"
	case errors.Is(err, domain.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrAlreadyBound):
		return "already_bound"
	}
	return "internal"
}

func (ctl *Controller) handleCreate(connID domain.ConnID, c *WsConn, data []byte) {
	type createPayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	snap, err := ctl.Coord.Create(connID, p.Name)
	if err != nil {
		ctl.sendError(c, wireError(err))
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("room", string(snap.ID)).Msg("room created")
	ctl.sendJSON(c, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}{
		Type: "room.created",
		Room: snap.ID,
	})
}

func (ctl *Controller) handleJoin(connID domain.ConnID, c *WsConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	snap, err := ctl.Coord.Join(connID, domain.RoomID(p.Room), p.Name)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("conn", string(connID)).Str("room", p.Room).Msg("join rejected")
		ctl.sendError(c, wireError(err))
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("room", string(snap.ID)).Msg("join")
	ctl.sendJSON(c, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}{
		Type: "room.joined",
		Room: snap.ID,
	})
}

// handleRejoin has no reply contract: on a miss the command simply
// evaporates, since it may race with the peer having left for good.
func (ctl *Controller) handleRejoin(connID domain.ConnID, c *WsConn, data []byte) {
	type rejoinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name"`
	}
	var p rejoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad rejoin payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("room", p.Room).Msg("rejoin")
	ctl.Coord.Rejoin(connID, domain.RoomID(p.Room), p.Name)
}
