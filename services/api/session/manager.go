package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/upande/sprayplan/services/api/erp"
)

// ErrSuperseded is returned when a slower scouting fetch resolves after a
// newer selection already replaced the session state.
var ErrSuperseded = errors.New("selection superseded by a newer fetch")

// ScoutingFetcher retrieves the scouting payload for a selection.
type ScoutingFetcher interface {
	FetchScoutingData(ctx context.Context, greenhouse, date string) (erp.ScoutingPayload, error)
}

// Manager owns the current session and the caches that intentionally
// outlive session replacement (chosen source warehouses; the UOM cache
// lives in the ERP client). A generation token guards against overlapping
// fetches installing out of order.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	current    string
	generation uint64
	installed  uint64

	warehouseChoices *cache.Cache
	stockDebounce    time.Duration
}

// NewManager builds a session manager with the given stock-refresh
// debounce window.
func NewManager(stockDebounce time.Duration) *Manager {
	return &Manager{
		sessions:         make(map[string]*Session),
		warehouseChoices: cache.New(cache.NoExpiration, 0),
		stockDebounce:    stockDebounce,
	}
}

// Open fetches scouting data for a greenhouse/date selection and installs
// a fresh session, fully replacing the previous one. If a newer Open call
// was issued while the fetch was in flight, the stale result is discarded
// and ErrSuperseded is returned.
func (m *Manager) Open(ctx context.Context, fetcher ScoutingFetcher, greenhouse, date string) (*Session, error) {
	m.mu.Lock()
	m.generation++
	token := m.generation
	m.mu.Unlock()

	payload, err := fetcher.FetchScoutingData(ctx, greenhouse, date)
	if err != nil {
		return nil, err
	}

	s := build(uuid.NewString(), greenhouse, date, payload, m.stockDebounce)

	m.mu.Lock()
	defer m.mu.Unlock()
	if token <= m.installed {
		s.Close()
		return nil, ErrSuperseded
	}
	m.installed = token

	if previous, ok := m.sessions[m.current]; ok {
		previous.Close()
		delete(m.sessions, m.current)
	}
	m.sessions[s.ID] = s
	m.current = s.ID
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// SetSourceWarehouse records the chosen source warehouse for a chemical.
// An empty warehouse clears the choice. Choices persist across sessions
// until explicitly changed.
func (m *Manager) SetSourceWarehouse(chemical, warehouse string) {
	if warehouse == "" {
		m.warehouseChoices.Delete(chemical)
		return
	}
	m.warehouseChoices.Set(chemical, warehouse, cache.NoExpiration)
}

// SourceWarehouse returns the cached warehouse choice for a chemical.
func (m *Manager) SourceWarehouse(chemical string) string {
	if cached, found := m.warehouseChoices.Get(chemical); found {
		if warehouse, ok := cached.(string); ok {
			return warehouse
		}
	}
	return ""
}
