package core

import (
	"errors"

	"github.com/dkeye/Poker/internal/domain"
)

var (
	ErrNotMember    = errors.New("not a member of this room")
	ErrSpectator    = errors.New("spectators cannot vote")
	ErrVotingClosed = errors.New("votes are revealed")
	ErrNotAllVoted  = errors.New("not every voter has voted")
	ErrRoomClosed   = errors.New("room closed")
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

func (p PublishResult) Merge(o PublishResult) PublishResult {
	p.SendTo += o.SendTo
	p.Dropped = append(p.Dropped, o.Dropped...)
	return p
}

// Publisher fans a frame out to room members. It must not block on any
// single recipient.
type Publisher interface {
	Publish(room domain.RoomID, targets []MemberSession, f Frame) PublishResult
}

// Rules are the per-room policy switches.
type Rules struct {
	// AllowVoteAfterReveal records votes cast while revealed (revealed stays true).
	AllowVoteAfterReveal bool
	// HideVotes masks vote values in snapshots until the room is revealed.
	HideVotes bool
}

func DefaultRules() Rules {
	return Rules{AllowVoteAfterReveal: true}
}

// RoomService is the core-facing API of a room.
// It owns the participant set and the reveal state but never touches
// transport resources beyond Publisher.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	Has(sid SessionID) bool
	Revealed() bool
	Closed() bool
	Snapshot() Snapshot
	Participants() []domain.Participant
	// View returns the snapshot and the raw participants read under one lock.
	View() (Snapshot, []domain.Participant)

	Join(ms MemberSession, p domain.Participant) (PublishResult, error)
	Vote(sid SessionID, v domain.Vote) (PublishResult, error)
	Reveal() (PublishResult, error)
	Reset() PublishResult
	// Remove drops sid. When the last member leaves the room is closed and
	// nothing is published.
	Remove(sid SessionID) (remaining int, res PublishResult, ok bool)
}

type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	Participants int           `json:"participants"`
	Revealed     bool          `json:"revealed"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	// RemoveParticipant removes sid from whatever room holds it and drops
	// the room once empty.
	RemoveParticipant(sid SessionID) (id domain.RoomID, remaining int, res PublishResult, ok bool)
	List() []RoomInfo
	Count() int
}
