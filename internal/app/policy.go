package app

import "github.com/dkeye/Poker/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose send buffer overflowed.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy kicks slow members when Kick is set and ignores them otherwise.
// A kicked client reconnects and joins again with a fresh snapshot.
type SimplePolicy struct {
	Kick bool
}

func (p SimplePolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	if p.Kick {
		return KickMember
	}
	return NoAction
}
