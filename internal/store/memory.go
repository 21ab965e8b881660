// apps/go-server/internal/store/memory.go
//
// In-memory room repository.
// Live matches are never persisted: a room exists from pairing until the
// match ends or a participant disconnects, and is lost on restart.
//
// Characteristics:
//   - Stores *game.Match objects keyed by room ID.
//   - Concurrency-safe via RWMutex so diagnostics can read while the
//     engine loop writes.
//   - Errors are returned for missing room IDs on Get().

package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/robalobadob/cardduel/apps/go-server/internal/game"
)

// ErrRoomNotFound is returned by Get for unknown or torn-down rooms.
var ErrRoomNotFound = errors.New("room not found")

// Rooms defines the repository of active matches.
type Rooms interface {
	// Save adds or replaces a room.
	Save(m *game.Match)

	// Get retrieves a room by ID.
	// Returns ErrRoomNotFound if the room does not exist.
	Get(id string) (*game.Match, error)

	// Delete removes a room; deleting a missing room is a no-op.
	Delete(id string)

	// IDs lists active room IDs in lexical order.
	IDs() []string
}

// memory is an in-memory map-based Rooms implementation.
type memory struct {
	mu    sync.RWMutex           // guards rooms map
	rooms map[string]*game.Match // keyed by Match.ID
}

// NewMemoryRooms constructs an empty in-memory room repository.
func NewMemoryRooms() Rooms {
	return &memory{rooms: make(map[string]*game.Match)}
}

func (m *memory) Save(g *game.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[g.ID] = g
}

func (m *memory) Get(id string) (*game.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.rooms[id]; ok {
		return g, nil
	}
	return nil, ErrRoomNotFound
}

func (m *memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
}

func (m *memory) IDs() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}
