package domain

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

const MaxRoomIDLen = 64

type RoomID string

// NewRoomID mints a fresh, lexically sortable room identifier.
func NewRoomID() RoomID {
	return RoomID(strings.ToLower(ulid.MustNew(ulid.Now(), rand.Reader).String()))
}

// ParseRoomID trims an externally supplied id. Empty or oversized ids are rejected.
func ParseRoomID(s string) (RoomID, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxRoomIDLen {
		return "", false
	}
	return RoomID(s), true
}
