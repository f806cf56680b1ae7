package core

import (
	"slices"
	"sync"

	"github.com/dkeye/Poker/internal/domain"
	"github.com/rs/zerolog/log"
)

type member struct {
	session MemberSession
	p       domain.Participant
	seq     uint64
}

// roomImpl is a threadsafe in-memory room.
// Every mutation publishes while the lock is held so all members observe
// the same order of snapshots. Publisher only enqueues, it never writes to
// the network, so the critical section stays short.
type roomImpl struct {
	id    domain.RoomID
	rules Rules
	pub   Publisher

	mu       sync.RWMutex
	bySID    map[SessionID]*member
	revealed bool
	closed   bool
	version  uint64
	nextSeq  uint64
}

func NewRoomService(id domain.RoomID, rules Rules, pub Publisher) RoomService {
	return &roomImpl{
		id:    id,
		rules: rules,
		pub:   pub,
		bySID: make(map[SessionID]*member),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) Has(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) Revealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revealed
}

func (r *roomImpl) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *roomImpl) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *roomImpl) Participants() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participantsLocked()
}

func (r *roomImpl) View() (Snapshot, []domain.Participant) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(), r.participantsLocked()
}

func (r *roomImpl) participantsLocked() []domain.Participant {
	ordered := r.orderedLocked()
	out := make([]domain.Participant, 0, len(ordered))
	for _, m := range ordered {
		out = append(out, m.p)
	}
	return out
}

func (r *roomImpl) Join(ms MemberSession, p domain.Participant) (PublishResult, error) {
	sid := ms.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return PublishResult{}, ErrRoomClosed
	}
	if m, ok := r.bySID[sid]; ok {
		// same connection joining again: refresh identity, keep its slot
		m.session = ms
		m.p.Name = p.Name
		if m.p.Role != p.Role {
			m.p.Role = p.Role
			m.p.ClearVote()
		}
	} else {
		r.nextSeq++
		p.ClearVote()
		r.bySID[sid] = &member{session: ms, p: p, seq: r.nextSeq}
	}
	r.version++
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).
		Str("name", p.Name).Str("role", string(p.Role)).Msg("member joined")
	return r.publishSnapshotLocked(), nil
}

func (r *roomImpl) Vote(sid SessionID, v domain.Vote) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bySID[sid]
	if !ok {
		return PublishResult{}, ErrNotMember
	}
	if !m.p.IsVoter() {
		return PublishResult{}, ErrSpectator
	}
	if r.revealed && !r.rules.AllowVoteAfterReveal {
		return PublishResult{}, ErrVotingClosed
	}
	m.p.SetVote(v)
	r.version++
	return r.publishSnapshotLocked(), nil
}

func (r *roomImpl) Reveal() (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.allVotedLocked() {
		return PublishResult{}, ErrNotAllVoted
	}
	r.revealed = true
	r.version++
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Msg("votes revealed")

	var res PublishResult
	if r.rules.HideVotes {
		// clients only learn the values from a revealed snapshot
		res = r.publishSnapshotLocked()
	}
	return res.Merge(r.publishNoticeLocked(EventVotesRevealed)), nil
}

func (r *roomImpl) Reset() PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.bySID {
		if m.p.IsVoter() {
			m.p.ClearVote()
		}
	}
	r.revealed = false
	r.version++
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Msg("votes reset")
	res := r.publishSnapshotLocked()
	return res.Merge(r.publishNoticeLocked(EventVotesReset))
}

func (r *roomImpl) Remove(sid SessionID) (int, PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return len(r.bySID), PublishResult{}, false
	}
	delete(r.bySID, sid)
	r.version++
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member removed")
	if len(r.bySID) == 0 {
		r.closed = true
		return 0, PublishResult{}, true
	}
	return len(r.bySID), r.publishSnapshotLocked(), true
}

func (r *roomImpl) allVotedLocked() bool {
	for _, m := range r.bySID {
		if m.p.IsVoter() && !m.p.Vote.IsSet() {
			return false
		}
	}
	return true
}

func (r *roomImpl) orderedLocked() []*member {
	out := make([]*member, 0, len(r.bySID))
	for _, m := range r.bySID {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *member) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}

func (r *roomImpl) snapshotLocked() Snapshot {
	hide := r.rules.HideVotes && !r.revealed
	ordered := r.orderedLocked()
	views := make([]ParticipantView, 0, len(ordered))
	for _, m := range ordered {
		v := ParticipantView{Name: m.p.Name, Voted: m.p.Vote.IsSet(), Role: m.p.Role}
		if v.Voted && !hide {
			vote := m.p.Vote
			v.Vote = &vote
		}
		views = append(views, v)
	}
	return Snapshot{
		Type:         EventRoomSnapshot,
		Room:         r.id,
		Version:      r.version,
		Revealed:     r.revealed,
		Participants: views,
	}
}

func (r *roomImpl) targetsLocked() []MemberSession {
	ordered := r.orderedLocked()
	out := make([]MemberSession, 0, len(ordered))
	for _, m := range ordered {
		out = append(out, m.session)
	}
	return out
}

func (r *roomImpl) publishSnapshotLocked() PublishResult {
	snap := r.snapshotLocked()
	r.logStateLocked(snap)
	return r.publishLocked(snap)
}

func (r *roomImpl) publishNoticeLocked(event string) PublishResult {
	return r.publishLocked(Notice{Type: event, Room: r.id})
}

func (r *roomImpl) publishLocked(v any) PublishResult {
	if r.pub == nil {
		return PublishResult{}
	}
	f, err := EncodeFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("encode frame")
		return PublishResult{}
	}
	return r.pub.Publish(r.id, r.targetsLocked(), f)
}

func (r *roomImpl) logStateLocked(snap Snapshot) {
	voted := 0
	for _, p := range snap.Participants {
		if p.Voted {
			voted++
		}
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Uint64("version", snap.Version).
		Int("members", len(snap.Participants)).Int("voted", voted).Bool("revealed", snap.Revealed).
		Msg("room state")
}
