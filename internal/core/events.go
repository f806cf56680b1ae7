package core

import (
	"encoding/json"

	"github.com/dkeye/Poker/internal/domain"
)

const (
	EventRoomSnapshot  = "room_snapshot"
	EventVotesRevealed = "votes_revealed"
	EventVotesReset    = "votes_reset"
)

// ParticipantView is a read-only view for clients (no transport fields).
// Vote is null while unset or hidden.
type ParticipantView struct {
	Name  string       `json:"name"`
	Vote  *domain.Vote `json:"vote"`
	Voted bool         `json:"voted"`
	Role  domain.Role  `json:"role"`
}

type Snapshot struct {
	Type         string            `json:"type"`
	Room         domain.RoomID     `json:"room"`
	Version      uint64            `json:"version"`
	Revealed     bool              `json:"revealed"`
	Participants []ParticipantView `json:"participants"`
}

// Notice is a payload-less state transition event.
type Notice struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

func EncodeFrame(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
