package core

// SessionID identifies one live connection. It is never reused.
type SessionID string

// MemberSession binds a connection id and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	Signal() SignalConnection
}
