package core

// memberSession implements MemberSession by pairing id + transport.
type memberSession struct {
	id   SessionID
	conn SignalConnection
}

func NewMemberSession(id SessionID, conn SignalConnection) MemberSession {
	return &memberSession{id: id, conn: conn}
}

func (m *memberSession) ID() SessionID            { return m.id }
func (m *memberSession) Signal() SignalConnection { return m.conn }
