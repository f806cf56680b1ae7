package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl is the room store. Its lock only guards the id -> room
// entries; each room serializes its own mutations.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService

	registry *Registry
	pub      core.Publisher
	rules    core.Rules
}

func NewRoomManager(reg *Registry, pub core.Publisher, rules core.Rules) *RoomManagerImpl {
	return &RoomManagerImpl{
		rooms:    make(map[domain.RoomID]core.RoomService),
		registry: reg,
		pub:      pub,
		rules:    rules,
	}
}

// GetOrCreate never fails. A room closed by its last member leaving is
// replaced rather than reused.
func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok && !room.Closed() {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok && !room.Closed() {
		return room
	}
	room = core.NewRoomService(id, f.rules, f.pub)
	f.rooms[id] = room
	metrics.RoomsActive.Set(float64(len(f.rooms)))
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	if !ok || room.Closed() {
		return nil, false
	}
	return room, true
}

func (f *RoomManagerImpl) RemoveParticipant(sid core.SessionID) (domain.RoomID, int, core.PublishResult, bool) {
	id, ok := f.registry.RoomOf(sid)
	if !ok {
		return "", 0, core.PublishResult{}, false
	}
	defer f.registry.ClearRoom(sid, id)

	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if !ok {
		return "", 0, core.PublishResult{}, false
	}
	remaining, res, removed := room.Remove(sid)
	if !removed {
		return "", 0, core.PublishResult{}, false
	}
	if remaining == 0 {
		f.drop(id, room)
	}
	return id, remaining, res, true
}

// drop deletes the entry if it still points at the closed room.
func (f *RoomManagerImpl) drop(id domain.RoomID, room core.RoomService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.rooms[id]; ok && cur == room && room.Closed() {
		delete(f.rooms, id)
		metrics.RoomsActive.Set(float64(len(f.rooms)))
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted, no participants remaining")
	}
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	rooms := make([]core.RoomService, 0, len(f.rooms))
	for _, r := range f.rooms {
		rooms = append(rooms, r)
	}
	f.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if r.Closed() {
			continue
		}
		out = append(out, core.RoomInfo{ID: r.ID(), Participants: r.MemberCount(), Revealed: r.Revealed()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *RoomManagerImpl) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}
