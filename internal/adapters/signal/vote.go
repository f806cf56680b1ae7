package signal

import (
	"encoding/json"
	"strings"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	Type  string `json:"type"`
	Room  string `json:"room"`
	Value string `json:"value,omitempty"`
}

// decodeRoom parses the payload and normalizes its room id the same way join
// does. An empty room id means the connection's current room.
func (ctl *SignalWSController) decodeRoom(conn *WsSignalConn, data []byte) (roomPayload, domain.RoomID, bool) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad room payload")
		ctl.sendError(conn, "bad_payload")
		return p, "", false
	}
	if strings.TrimSpace(p.Room) == "" {
		return p, "", true
	}
	roomID, ok := domain.ParseRoomID(p.Room)
	if !ok {
		metrics.Events.WithLabelValues(p.Type, "rejected").Inc()
		ctl.sendError(conn, "invalid_room")
		return p, "", false
	}
	return p, roomID, true
}

func (ctl *SignalWSController) handleVote(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, roomID, ok := ctl.decodeRoom(conn, data)
	if !ok {
		return
	}
	v, err := domain.ParseVote(p.Value)
	if err != nil {
		ctl.report(sid, conn, "vote", err)
		return
	}
	ctl.report(sid, conn, "vote", ctl.Orch.Vote(sid, roomID, v))
}

func (ctl *SignalWSController) handleReveal(sid core.SessionID, conn *WsSignalConn, data []byte) {
	_, roomID, ok := ctl.decodeRoom(conn, data)
	if !ok {
		return
	}
	ctl.report(sid, conn, "reveal", ctl.Orch.Reveal(sid, roomID))
}

func (ctl *SignalWSController) handleReset(sid core.SessionID, conn *WsSignalConn, data []byte) {
	_, roomID, ok := ctl.decodeRoom(conn, data)
	if !ok {
		return
	}
	ctl.report(sid, conn, "reset", ctl.Orch.Reset(sid, roomID))
}
