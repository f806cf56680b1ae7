package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &env)
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) lastSnapshot(t *testing.T) core.Snapshot {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		var snap core.Snapshot
		require.NoError(t, json.Unmarshal(c.frames[i], &snap))
		if snap.Type == core.EventRoomSnapshot {
			return snap
		}
	}
	t.Fatal("no snapshot received")
	return core.Snapshot{}
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type harness struct {
	o      *Orchestrator
	rooms  *app.RoomManagerImpl
	kicked map[core.SessionID]int
	mu     sync.Mutex
}

func newHarness(t *testing.T, rules core.Rules) *harness {
	t.Helper()
	reg := app.NewRegistry()
	rooms := app.NewRoomManager(reg, app.NewDispatcher(), rules)
	return &harness{
		o:      &Orchestrator{Registry: reg, Rooms: rooms, Policy: app.SimplePolicy{Kick: true}},
		rooms:  rooms,
		kicked: make(map[core.SessionID]int),
	}
}

func (h *harness) connect(sid core.SessionID) *fakeConn {
	c := &fakeConn{}
	h.o.Registry.BindSignal(sid, core.NewMemberSession(sid, c), func() {
		h.mu.Lock()
		h.kicked[sid]++
		h.mu.Unlock()
	})
	return c
}

func (h *harness) join(t *testing.T, sid core.SessionID, room domain.RoomID, name string, role domain.Role) *fakeConn {
	t.Helper()
	c := h.connect(sid)
	require.NoError(t, h.o.Join(sid, room, domain.NewParticipant(name, role)))
	return c
}

func TestAliceBobScenario(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	alice := h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	bob := h.join(t, "b", "abc", "Bob", domain.RoleSpectator)

	require.NoError(t, h.o.Vote("a", "abc", "3"))
	require.NoError(t, h.o.Reveal("b", "abc"), "spectators never block a reveal")
	for _, c := range []*fakeConn{alice, bob} {
		types := c.types()
		assert.Equal(t, core.EventVotesRevealed, types[len(types)-1])
	}

	alice.reset()
	bob.reset()
	require.NoError(t, h.o.Reset("a", ""))
	for _, c := range []*fakeConn{alice, bob} {
		assert.Equal(t, []string{core.EventRoomSnapshot, core.EventVotesReset}, c.types())
		snap := c.lastSnapshot(t)
		assert.False(t, snap.Revealed)
		for _, p := range snap.Participants {
			assert.Nil(t, p.Vote)
		}
	}
}

func TestSpectatorVoteDoesNotBroadcast(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	alice := h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	bob := h.join(t, "b", "abc", "Bob", domain.RoleSpectator)
	alice.reset()
	bob.reset()

	err := h.o.Vote("b", "abc", "8")
	assert.ErrorIs(t, err, core.ErrSpectator)
	assert.Empty(t, alice.types())
	assert.Empty(t, bob.types())
}

func TestPrematureRevealIsIgnored(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	alice := h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	h.join(t, "c", "abc", "Carl", domain.RoleVoter)
	require.NoError(t, h.o.Vote("a", "abc", "5"))
	alice.reset()

	assert.ErrorIs(t, h.o.Reveal("a", "abc"), core.ErrNotAllVoted)
	assert.Empty(t, alice.types())
}

func TestActingRoomComesFromRegistry(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	other := h.join(t, "z", "xyz", "Zed", domain.RoleVoter)
	other.reset()

	assert.ErrorIs(t, h.o.Vote("a", "xyz", "5"), ErrRoomMismatch)
	assert.ErrorIs(t, h.o.Reveal("a", "xyz"), ErrRoomMismatch)
	assert.ErrorIs(t, h.o.Reset("a", "xyz"), ErrRoomMismatch)
	assert.Empty(t, other.types())

	h.connect("n")
	assert.ErrorIs(t, h.o.Vote("n", "abc", "5"), ErrNotJoined)
	assert.ErrorIs(t, h.o.Reveal("n", "nowhere"), ErrNotJoined)
	assert.ErrorIs(t, h.o.Join("ghost", "abc", domain.NewParticipant("g", domain.RoleVoter)), ErrNoSession)
}

func TestJoinOtherRoomLeavesPrevious(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	alice := h.join(t, "a", "r1", "Alice", domain.RoleVoter)
	bob := h.join(t, "b", "r1", "Bob", domain.RoleVoter)
	bob.reset()

	require.NoError(t, h.o.Join("a", "r2", domain.NewParticipant("Alice", domain.RoleVoter)))

	r1, ok := h.rooms.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 1, r1.MemberCount())
	assert.Len(t, bob.lastSnapshot(t).Participants, 1)

	r2, ok := h.rooms.Get("r2")
	require.True(t, ok)
	assert.True(t, r2.Has("a"))
	assert.Equal(t, "r2", string(alice.lastSnapshot(t).Room))

	room, ok := h.o.Registry.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("r2"), room)

	// the only member of r1 moving out deletes it
	require.NoError(t, h.o.Join("b", "r2", domain.NewParticipant("Bob", domain.RoleVoter)))
	_, ok = h.rooms.Get("r1")
	assert.False(t, ok)
}

func TestDisconnectLifecycle(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	bob := h.join(t, "b", "abc", "Bob", domain.RoleVoter)
	require.NoError(t, h.o.Vote("a", "abc", "1"))
	require.NoError(t, h.o.Vote("b", "abc", "1"))
	require.NoError(t, h.o.Reveal("a", "abc"))

	h.o.OnDisconnect("a")
	snap := bob.lastSnapshot(t)
	assert.Len(t, snap.Participants, 1)
	assert.True(t, snap.Revealed)

	h.o.OnDisconnect("b")
	_, ok := h.rooms.Get("abc")
	assert.False(t, ok)
	assert.Zero(t, h.o.Registry.Count())

	// a disconnect of something that never joined is harmless
	h.connect("n")
	h.o.OnDisconnect("n")
	h.o.OnDisconnect("n")

	carl := h.join(t, "c", "abc", "Carl", domain.RoleVoter)
	snap = carl.lastSnapshot(t)
	assert.False(t, snap.Revealed)
	assert.Len(t, snap.Participants, 1)
}

func TestExplicitLeaveKeepsConnection(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	assert.True(t, h.o.Leave("a"))
	assert.False(t, h.o.Leave("a"))
	_, ok := h.o.Registry.GetSession("a")
	assert.True(t, ok)
	require.NoError(t, h.o.Join("a", "abc", domain.NewParticipant("Alice", domain.RoleVoter)))
}

func TestSlowMemberIsKicked(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	h.join(t, "a", "abc", "Alice", domain.RoleVoter)
	slow := h.join(t, "s", "abc", "Slow", domain.RoleVoter)
	slow.mu.Lock()
	slow.full = true
	slow.mu.Unlock()

	require.NoError(t, h.o.Vote("a", "abc", "2"))
	room, ok := h.rooms.Get("abc")
	require.True(t, ok)
	require.NotNil(t, room.Snapshot().Participants[0].Vote, "the vote stands despite the failed delivery")

	h.mu.Lock()
	assert.Equal(t, 1, h.kicked["s"])
	assert.Zero(t, h.kicked["a"])
	h.mu.Unlock()
}

func TestConcurrentVotesThroughOrchestrator(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	const n = 20
	for i := 0; i < n; i++ {
		h.join(t, core.SessionID(fmt.Sprintf("s%d", i)), "abc", "user", domain.RoleVoter)
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, h.o.Vote(core.SessionID(fmt.Sprintf("s%d", i)), "abc", "8"))
		}(i)
	}
	wg.Wait()
	require.NoError(t, h.o.Reveal("s0", "abc"))
}

func TestConcurrentJoinLeaveAcrossRooms(t *testing.T) {
	h := newHarness(t, core.DefaultRules())
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		sid := core.SessionID(fmt.Sprintf("s%d", i))
		room := domain.RoomID(fmt.Sprintf("r%d", i%4))
		h.connect(sid)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.o.Join(sid, room, domain.NewParticipant(string(sid), domain.RoleVoter)))
			_ = h.o.Vote(sid, room, "3")
			h.o.OnDisconnect(sid)
		}()
	}
	wg.Wait()
	assert.Zero(t, h.rooms.Count())
}
