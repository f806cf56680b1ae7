package orch

import (
	"errors"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoSession    = errors.New("unknown session")
	ErrNotJoined    = errors.New("not joined to a room")
	ErrRoomMismatch = errors.New("room does not match the joined room")
)

// Orchestrator routes inbound events to the room the connection is
// registered in and applies the backpressure policy once the room has
// released its lock.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
}

func (o *Orchestrator) handleDropped(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil || len(res.Dropped) == 0 {
		return
	}
	seen := make(map[core.SessionID]struct{}, len(res.Dropped))
	for _, slow := range res.Dropped {
		sid := slow.ID()
		if _, dup := seen[sid]; dup {
			continue
		}
		seen[sid] = struct{}{}
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("kicking slow member")
			o.KickBySID(sid)
		case app.NoAction:
		}
	}
}

// KickBySID closes the member's connection. Membership is cleaned up by
// the disconnect that follows.
func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.Registry.Cancel(sid)
}
