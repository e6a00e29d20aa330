// Package store keeps the games currently being played. Finished games are
// archived through the repository; nothing here survives a restart.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"hash/maphash"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/vancomm/minefield/internal/mines"
)

var ErrNotFound = errors.New("game session not found")

// Session is one live game. The engine is single-threaded, so every access
// to it goes through [Session.Do].
type Session struct {
	ID       string
	PlayerID *int64

	mu        sync.Mutex
	game      *mines.Game
	startedAt time.Time
	endedAt   *time.Time
}

// Outcome describes the round a [Session.Do] call left the game in.
type Outcome struct {
	// Finished is set only by the call that ended the round.
	Finished  bool
	StartedAt time.Time
	EndedAt   *time.Time
}

// Do runs fn with exclusive access to the game and stamps the end time the
// first time the game finishes. The returned times are read under the same
// lock as fn.
func (s *Session) Do(fn func(g *mines.Game) error) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasOver, round := s.game.Over(), s.game.Round()
	err := fn(s.game)

	if s.game.Round() != round {
		s.startedAt = time.Now().UTC()
		s.endedAt = nil
		wasOver = false
	}
	out := Outcome{StartedAt: s.startedAt}
	if s.game.Over() && !wasOver {
		now := time.Now().UTC()
		s.endedAt = &now
		out.Finished = true
	}
	if s.endedAt != nil {
		endedAt := *s.endedAt
		out.EndedAt = &endedAt
	}
	return out, err
}

// Times returns when the current round started and, if over, ended.
func (s *Session) Times() (startedAt time.Time, endedAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, s.endedAt
}

func createRand() *mrand.Rand {
	return mrand.New(mrand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type Memory struct {
	mu       sync.RWMutex
	params   mines.GameParams
	sessions map[string]*Session
}

func NewMemory(params mines.GameParams) *Memory {
	return &Memory{
		params:   params,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new game. playerID is nil for anonymous players.
func (m *Memory) Create(playerID *int64) (*Session, error) {
	game, err := mines.NewGame(m.params, createRand())
	if err != nil {
		return nil, err
	}
	id, err := generateID()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        id,
		PlayerID:  playerID,
		game:      game,
		startedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s, nil
}

func (m *Memory) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune drops sessions that finished before cutoff or started before
// idleCutoff without finishing. It returns the number of sessions removed.
func (m *Memory) Prune(cutoff, idleCutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		startedAt, endedAt := s.Times()
		if (endedAt != nil && endedAt.Before(cutoff)) ||
			(endedAt == nil && startedAt.Before(idleCutoff)) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
