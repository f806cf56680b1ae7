package orch

import (
	"errors"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join puts sid into roomID. A connection already in another room leaves
// it first.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID, p domain.Participant) error {
	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return ErrNoSession
	}
	if from, ok := o.Registry.RoomOf(sid); ok && from != roomID {
		o.leave(sid)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(from)).Msg("left previous room")
	}
	for {
		room := o.Rooms.GetOrCreate(roomID)
		res, err := room.Join(session, p)
		if errors.Is(err, core.ErrRoomClosed) {
			// emptied between lookup and join; the store hands out a fresh one
			continue
		}
		if err != nil {
			return err
		}
		o.Registry.UpdateRoom(sid, roomID)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("added to room")
		o.handleDropped(room, res)
		return nil
	}
}

// acting resolves the room sid is registered in. A client-supplied id must
// match it; an empty one means "my room".
func (o *Orchestrator) acting(sid core.SessionID, claimed domain.RoomID) (core.RoomService, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, ErrNotJoined
	}
	if claimed != "" && claimed != roomID {
		return nil, ErrRoomMismatch
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, ErrNotJoined
	}
	return room, nil
}

func (o *Orchestrator) Vote(sid core.SessionID, claimed domain.RoomID, v domain.Vote) error {
	room, err := o.acting(sid, claimed)
	if err != nil {
		return err
	}
	res, err := room.Vote(sid, v)
	if err != nil {
		return err
	}
	o.handleDropped(room, res)
	return nil
}

func (o *Orchestrator) Reveal(sid core.SessionID, claimed domain.RoomID) error {
	room, err := o.acting(sid, claimed)
	if err != nil {
		return err
	}
	res, err := room.Reveal()
	if err != nil {
		return err
	}
	o.handleDropped(room, res)
	return nil
}

func (o *Orchestrator) Reset(sid core.SessionID, claimed domain.RoomID) error {
	room, err := o.acting(sid, claimed)
	if err != nil {
		return err
	}
	o.handleDropped(room, room.Reset())
	return nil
}

// Leave removes sid from its room but keeps the connection.
func (o *Orchestrator) Leave(sid core.SessionID) bool {
	return o.leave(sid)
}

// OnDisconnect runs on every connection teardown, joined or not.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.leave(sid)
	o.Registry.Unbind(sid)
}

func (o *Orchestrator) leave(sid core.SessionID) bool {
	roomID, remaining, res, ok := o.Rooms.RemoveParticipant(sid)
	if !ok {
		return false
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Int("remaining", remaining).Msg("removed from room")
	if remaining > 0 {
		room, _ := o.Rooms.Get(roomID)
		o.handleDropped(room, res)
	}
	return true
}
