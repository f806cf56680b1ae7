package signal

import (
	"encoding/json"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name"`
		Role string `json:"role,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	roomID, ok := domain.ParseRoomID(p.Room)
	if !ok {
		metrics.Events.WithLabelValues("join", "rejected").Inc()
		ctl.sendError(conn, "invalid_room")
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.report(sid, conn, "join", err)
		return
	}
	name, err := domain.NormalizeName(p.Name, ctl.Opts.RequireName)
	if err != nil {
		ctl.report(sid, conn, "join", err)
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomID)).
		Str("name", name).Str("role", string(role)).Msg("join")
	ctl.report(sid, conn, "join", ctl.Orch.Join(sid, roomID, domain.NewParticipant(name, role)))
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
	metrics.Events.WithLabelValues("leave", "ok").Inc()
	ctl.sendJSON(conn, map[string]any{
		"type": "left",
	})
}
