package ws

import (
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand"
	"sort"
	"sync"
	"time"

	"snakesladders/internal/authority"
	"snakesladders/internal/bot"
	"snakesladders/internal/config"
	"snakesladders/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// RoomInfo is returned by the API for the room list.
type RoomInfo struct {
	Code    string       `json:"code"`
	Players int          `json:"players"`
	Phase   domain.Phase `json:"phase"`
}

// DefaultIdleTimeout is how long a room may stay without a human.
const DefaultIdleTimeout = 2 * time.Minute

var ErrTooManyRooms = errors.New("too many open rooms")

// Manager holds rooms by code. Rooms are removed when the last human leaves or
// when they idle out without one.
type Manager struct {
	// MaxRooms caps open rooms; zero means no cap.
	MaxRooms    int
	IdleTimeout time.Duration

	mu     sync.RWMutex
	rooms  map[string]*Room
	cfg    config.GameConfig
	pool   *bot.Pool
	tick   time.Duration
	logger runtime.Logger
}

func NewManager(cfg config.GameConfig, pool *bot.Pool, tick time.Duration, logger runtime.Logger) *Manager {
	return &Manager{
		IdleTimeout: DefaultIdleTimeout,
		rooms:       make(map[string]*Room),
		cfg:         cfg,
		pool:        pool,
		tick:        tick,
		logger:      logger,
	}
}

// CreateRoom starts a room under a fresh code.
func (m *Manager) CreateRoom() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MaxRooms > 0 && len(m.rooms) >= m.MaxRooms {
		return nil, ErrTooManyRooms
	}
	if err := m.cfg.ValidateNetworked(); err != nil {
		return nil, err
	}

	code := generateCode(6)
	for _, exists := m.rooms[code]; exists; _, exists = m.rooms[code] {
		code = generateCode(6)
	}

	session, err := authority.NewSession(m.cfg, m.pool, mrand.New(mrand.NewSource(time.Now().UnixNano())), m.logger.WithField("room", code))
	if err != nil {
		return nil, err
	}
	r := NewRoom(code, session, m.tick, m.logger)
	r.OnEmpty = m.removeRoom
	r.IdleTimeout = m.IdleTimeout
	m.rooms[code] = r
	go r.Run()
	m.logger.Info("Manager: Created room %s", code)
	return r, nil
}

func (m *Manager) Room(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

func (m *Manager) removeRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok {
		r.Stop()
		delete(m.rooms, code)
		m.logger.Info("Manager: Removed room %s", code)
	}
}

// ListRooms returns every active room sorted by code.
func (m *Manager) ListRooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for code, r := range m.rooms {
		out = append(out, RoomInfo{Code: code, Players: r.NumPlayers(), Phase: r.Phase()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Shutdown stops every room.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, r := range m.rooms {
		r.Stop()
		delete(m.rooms, code)
	}
}

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
