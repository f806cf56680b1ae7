// Package domain holds the participant, vote and room id types and the rules for parsing them off the wire.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
	ErrInvalidRole = errors.New("invalid role")
	ErrInvalidVote = errors.New("invalid vote")
)

type Role string

const (
	RoleVoter     Role = "voter"
	RoleSpectator Role = "spectator"
)

// ParseRole maps a wire value to a Role. An empty value means voter.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleVoter:
		return RoleVoter, nil
	case RoleSpectator:
		return RoleSpectator, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Vote is a card value. NoVote marks an unset vote.
type Vote string

const (
	NoVote   Vote = ""
	Question Vote = "?"
)

// Cards is the fixed deck, in display order.
var Cards = []Vote{"1", "2", "3", "5", "8", "13", "21", Question}

func ParseVote(s string) (Vote, error) {
	for _, c := range Cards {
		if string(c) == s {
			return c, nil
		}
	}
	return NoVote, fmt.Errorf("%w: %q", ErrInvalidVote, s)
}

func (v Vote) IsSet() bool { return v != NoVote }

// NormalizeName trims the display name and checks its length.
// Emptiness is only an error when required is set.
func NormalizeName(name string, required bool) (string, error) {
	name = strings.TrimSpace(name)
	if required && len(name) == 0 {
		return "", ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// Participant is one connection's identity and vote inside a room.
type Participant struct {
	Name string
	Vote Vote
	Role Role
}

func NewParticipant(name string, role Role) Participant {
	return Participant{Name: name, Role: role}
}

func (p Participant) IsVoter() bool { return p.Role == RoleVoter }

// SetVote records v. Spectators never hold a vote.
func (p *Participant) SetVote(v Vote) bool {
	if !p.IsVoter() {
		return false
	}
	p.Vote = v
	return true
}

func (p *Participant) ClearVote() { p.Vote = NoVote }
