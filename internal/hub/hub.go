// Package hub keeps the registry of live sessions.
package hub

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"grot_arena/internal/domain"
	"grot_arena/internal/game"
	"grot_arena/internal/logger"
	"grot_arena/internal/session"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const SandboxID = "sandbox"

var ErrNotFound = errors.New("session not found")

// ResultStore persists final standings. *repository.PlayerRepository satisfies it.
type ResultStore interface {
	RecordResults(ctx context.Context, results []domain.SessionResult) error
}

type Config struct {
	Timeout    time.Duration
	BoardSize  int
	BoardMoves int
	// TTL is how long an ended or never started session stays reachable.
	TTL time.Duration

	Clock     clockwork.Clock
	Qualifier session.Qualifier
	Opponents session.Requester
	Results   ResultStore
}

type entry struct {
	s         *session.Session
	cancel    context.CancelFunc
	createdAt time.Time
	endedAt   time.Time
}

type Hub struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*entry
	sandbox  *session.Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a hub and starts the sandbox session. Every session loop stops
// when ctx is cancelled or Close is called.
func New(ctx context.Context, cfg Config) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Hub{
		cfg:      cfg,
		sessions: make(map[string]*entry),
		ctx:      ctx,
		cancel:   cancel,
	}

	h.sandbox = h.start(SandboxID, session.Sandbox{})
	return h
}

// Create starts a new session of kind. Asking for a sandbox returns the
// shared sandbox session.
func (h *Hub) Create(kind session.Kind) (*session.Session, error) {
	if kind == session.KindSandbox {
		return h.sandbox, nil
	}
	policy, err := session.NewPolicy(kind, h.cfg.Qualifier)
	if err != nil {
		return nil, err
	}
	return h.start(uuid.NewString(), policy), nil
}

func (h *Hub) Get(id string) (*session.Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.s, nil
}

func (h *Hub) Sandbox() *session.Session { return h.sandbox }

// List returns the status of every registered session, skipping any that
// stopped in the meantime.
func (h *Hub) List(ctx context.Context) []session.Status {
	h.mu.RLock()
	all := make([]*session.Session, 0, len(h.sessions))
	for _, e := range h.sessions {
		all = append(all, e.s)
	}
	h.mu.RUnlock()

	out := make([]session.Status, 0, len(all))
	for _, s := range all {
		st, err := s.Status(ctx)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Len reports the number of registered sessions, the sandbox included.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) start(id string, policy session.Policy) *session.Session {
	s := session.New(session.Config{
		ID:        id,
		Policy:    policy,
		Board:     game.NewGridBoard(h.cfg.BoardSize, h.cfg.BoardMoves, rand.Uint64()),
		Rules:     game.GridRules,
		Timeout:   h.cfg.Timeout,
		Clock:     h.cfg.Clock,
		Opponents: h.cfg.Opponents,
	})

	ctx, cancel := context.WithCancel(h.ctx)
	e := &entry{s: s, cancel: cancel, createdAt: h.cfg.Clock.Now()}

	h.mu.Lock()
	h.sessions[id] = e
	h.mu.Unlock()

	ends, _ := s.OnEnd().Subscribe()
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		s.Run(ctx)
	}()
	go func() {
		defer h.wg.Done()
		h.watch(e, ends)
	}()

	logger.Info("session created", "session_id", id, "kind", string(policy.Kind()))
	return s
}

// watch waits for the session to end, then records its standings.
func (h *Hub) watch(e *entry, ends <-chan session.Event) {
	ev, ok := <-ends
	if !ok {
		return
	}

	h.mu.Lock()
	e.endedAt = h.cfg.Clock.Now()
	h.mu.Unlock()

	if h.cfg.Results == nil {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	players, err := e.s.Players(ctx)
	if err != nil {
		logger.Warn("results unavailable", "session_id", ev.SessionID, "error", err)
		return
	}
	results := Standings(ev.SessionID, e.s.Kind(), ev.Round, players)
	if err := h.cfg.Results.RecordResults(ctx, results); err != nil {
		logger.Error("failed to record results", "session_id", ev.SessionID, "error", err)
		return
	}
	logger.Info("results recorded", "session_id", ev.SessionID, "players", len(results))
}

// Standings converts ranked snapshots into result rows, first place first.
func Standings(sessionID string, kind session.Kind, rounds int, ranked []session.Snapshot) []domain.SessionResult {
	out := make([]domain.SessionResult, 0, len(ranked))
	for i, p := range ranked {
		out = append(out, domain.SessionResult{
			SessionID: sessionID,
			Kind:      string(kind),
			PlayerID:  p.User.ID,
			Name:      p.User.Name,
			Place:     i + 1,
			Score:     p.Score,
			MovesLeft: p.Moves,
			Rounds:    rounds,
		})
	}
	return out
}

// StartCleanup periodically drops sessions that ended, or never started,
// more than TTL ago.
func (h *Hub) StartCleanup(interval time.Duration) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := h.cfg.Clock.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.ctx.Done():
				return
			case <-ticker.Chan():
				h.cleanupStale(h.ctx)
			}
		}
	}()
}

func (h *Hub) cleanupStale(ctx context.Context) int {
	now := h.cfg.Clock.Now()

	h.mu.RLock()
	candidates := make(map[string]*entry)
	for id, e := range h.sessions {
		if id != SandboxID {
			candidates[id] = e
		}
	}
	h.mu.RUnlock()

	var stale []string
	for id, e := range candidates {
		h.mu.RLock()
		endedAt := e.endedAt
		h.mu.RUnlock()

		if !endedAt.IsZero() {
			if now.Sub(endedAt) > h.cfg.TTL {
				stale = append(stale, id)
			}
			continue
		}
		if now.Sub(e.createdAt) <= h.cfg.TTL {
			continue
		}
		st, err := e.s.Status(ctx)
		if err != nil || !st.Started {
			stale = append(stale, id)
		}
	}

	h.mu.Lock()
	for _, id := range stale {
		if e, ok := h.sessions[id]; ok {
			e.cancel()
			delete(h.sessions, id)
			logger.Info("cleaned up stale session", "session_id", id)
		}
	}
	h.mu.Unlock()
	return len(stale)
}

// Close stops every session loop and waits for the hub's goroutines.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}
