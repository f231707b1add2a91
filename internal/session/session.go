package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"grot_arena/internal/game"
	"grot_arena/internal/logger"

	"github.com/jonboulle/clockwork"
)

// DefaultTimeout is how long a round waits for moves before skipping stragglers.
const DefaultTimeout = 10 * time.Second

var ErrInvalidUser = errors.New("user id is required")

type Config struct {
	ID        string
	Policy    Policy
	Board     game.Board
	Rules     game.Rules
	Timeout   time.Duration
	Clock     clockwork.Clock
	Opponents Requester
	Logger    *slog.Logger
}

// Status is a point-in-time summary of the session.
type Status struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Round        int        `json:"round"`
	Started      bool       `json:"started"`
	Ended        bool       `json:"ended"`
	Participants int        `json:"participants"`
	Pending      int        `json:"pending"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// Session coordinates rounds for one group of participants.
//
// All state is owned by the goroutine running Run. Public methods hand their
// work to that loop and wait for it, so at most one mutation is in flight.
type Session struct {
	id        string
	policy    Policy
	board     game.Board
	rules     game.Rules
	timeout   time.Duration
	clock     clockwork.Clock
	opponents Requester
	log       *slog.Logger

	round        int
	participants map[string]*Participant
	pending      int
	timer        clockwork.Timer
	deadline     time.Time
	expired      bool
	ended        bool

	onChange   *Broadcaster[Event]
	onProgress *Broadcaster[Event]
	onEnd      *Broadcaster[Event]

	cmds    chan func()
	stopped chan struct{}
	runCtx  context.Context
}

func New(cfg Config) *Session {
	if cfg.Policy == nil {
		cfg.Policy = Standard{}
	}
	if cfg.Rules == nil {
		cfg.Rules = game.GridRules
	}
	if cfg.Board == nil {
		cfg.Board = game.NewGridBoard(game.GridDefaultSize, game.GridDefaultMoves, uint64(time.Now().UnixNano()))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.ForSession(cfg.ID, string(cfg.Policy.Kind()))
	} else {
		log = log.With("session_id", cfg.ID, "kind", string(cfg.Policy.Kind()))
	}

	s := &Session{
		id:           cfg.ID,
		policy:       cfg.Policy,
		board:        cfg.Board,
		rules:        cfg.Rules,
		timeout:      cfg.Timeout,
		clock:        cfg.Clock,
		opponents:    cfg.Opponents,
		log:          log,
		participants: make(map[string]*Participant),
		onChange:     NewBroadcaster[Event](),
		onProgress:   NewBroadcaster[Event](),
		onEnd:        NewBroadcaster[Event](),
		cmds:         make(chan func()),
		stopped:      make(chan struct{}),
		runCtx:       context.Background(),
	}
	for _, b := range []*Broadcaster[Event]{s.onChange, s.onProgress, s.onEnd} {
		b.onDrop = EventsDropped.Inc
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Kind() Kind { return s.policy.Kind() }

// OnChange fires on every participant or session mutation.
func (s *Session) OnChange() *Broadcaster[Event] { return s.onChange }

// OnProgress fires when a new round begins.
func (s *Session) OnProgress() *Broadcaster[Event] { return s.onProgress }

// OnEnd fires once, when no active participant remains.
func (s *Session) OnEnd() *Broadcaster[Event] { return s.onEnd }

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} { return s.stopped }

// Run processes session work until ctx is cancelled. It must be called once.
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	s.log.Info("session loop started")

	defer func() {
		s.disarm()
		close(s.stopped)
		s.onChange.Close()
		s.onProgress.Close()
		s.onEnd.Close()
		s.log.Info("session loop stopped", "round", s.round)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.cmds:
			fn()
		}
	}
}

// do runs fn on the session loop and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.cmds <- func() { defer close(done); fn() }:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrClosed
	}
}

// post schedules fn on the loop without waiting for it.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.stopped:
	}
}

// Join admits u through the policy and adds a participant with a private
// copy of the initial board.
func (s *Session) Join(ctx context.Context, u User) (Snapshot, error) {
	if u.ID == "" {
		return Snapshot{}, ErrInvalidUser
	}
	if err := s.policy.Admit(ctx, u); err != nil {
		s.log.Info("join rejected", "user", u.ID, "error", err)
		return Snapshot{}, err
	}

	var (
		snap Snapshot
		err  error
	)
	if derr := s.do(ctx, func() { snap, err = s.join(u) }); derr != nil {
		return Snapshot{}, derr
	}
	return snap, err
}

// Begin starts the first round. It is a no-op for sessions without rounds.
func (s *Session) Begin(ctx context.Context) error {
	var err error
	if derr := s.do(ctx, func() { err = s.begin() }); derr != nil {
		return derr
	}
	return err
}

// Move records a move for participant id. A validator rejection is returned
// after the participant has been marked ready for the round.
func (s *Session) Move(ctx context.Context, id string, x, y int) error {
	var err error
	if derr := s.do(ctx, func() { err = s.move(id, x, y) }); derr != nil {
		return derr
	}
	return err
}

// Skip passes participant id's turn for the current round.
func (s *Session) Skip(ctx context.Context, id string) error {
	var err error
	if derr := s.do(ctx, func() { err = s.skip(id) }); derr != nil {
		return derr
	}
	return err
}

// Players ranks participants by score and moves, highest first, ties broken
// by identity. Sessions without rounds have no ranking.
func (s *Session) Players(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := s.do(ctx, func() {
		if !s.policy.Barrier() {
			out = []Snapshot{}
			return
		}
		out = snapshots(s.ranked(), false)
	})
	return out, err
}

// Participant returns the snapshot of id. Sessions without rounds create the
// participant on first lookup.
func (s *Session) Participant(ctx context.Context, id string, includeBoard bool) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if derr := s.do(ctx, func() {
		var p *Participant
		if p, err = s.lookup(id); err == nil {
			snap = p.snapshot(includeBoard)
		}
	}); derr != nil {
		return Snapshot{}, derr
	}
	return snap, err
}

func (s *Session) ActiveParticipants(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := s.do(ctx, func() { out = snapshots(s.active(), false) })
	return out, err
}

func (s *Session) UnreadyActiveParticipants(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := s.do(ctx, func() { out = snapshots(s.unready(), false) })
	return out, err
}

func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.do(ctx, func() { st = s.status() })
	return st, err
}

func (s *Session) status() Status {
	st := Status{
		ID:           s.id,
		Kind:         s.policy.Kind(),
		Round:        s.round,
		Started:      s.round != 0,
		Ended:        s.ended,
		Participants: len(s.participants),
		Pending:      s.pending,
	}
	if !s.policy.Barrier() {
		st.Started, st.Ended = true, false
	}
	if s.timer != nil {
		d := s.deadline
		st.Deadline = &d
	}
	return st
}

func (s *Session) join(u User) (Snapshot, error) {
	if s.ended {
		return Snapshot{}, fmt.Errorf("%w: session ended", ErrNotRunning)
	}
	if _, ok := s.participants[u.ID]; ok {
		return Snapshot{}, ErrAlreadyJoined
	}
	if c := s.policy.Capacity(); c > 0 && len(s.participants) >= c {
		return Snapshot{}, ErrSessionFull
	}

	p, err := s.add(u)
	if err != nil {
		return Snapshot{}, err
	}

	act := s.policy.Joined(len(s.participants))
	if act.RequestOpponent {
		s.requestOpponent()
	}
	if act.Begin {
		if err := s.begin(); err != nil {
			s.log.Error("autostart failed", "error", err)
		}
	}
	return p.snapshot(false), nil
}

func (s *Session) add(u User) (*Participant, error) {
	v, err := s.rules(s.board.Clone())
	if err != nil {
		return nil, fmt.Errorf("new validator: %w", err)
	}
	p := newParticipant(u, v, !s.policy.Barrier())
	s.participants[u.ID] = p

	s.log.Info("participant joined", "user", u.ID, "participants", len(s.participants))
	s.publish(s.onChange, EventChange, u.ID)
	return p, nil
}

func (s *Session) lookup(id string) (*Participant, error) {
	if p, ok := s.participants[id]; ok {
		return p, nil
	}
	if s.policy.Barrier() {
		return nil, ErrUnknownParticipant
	}
	if id == "" {
		return nil, ErrInvalidUser
	}
	return s.add(User{ID: id})
}

func (s *Session) begin() error {
	if !s.policy.Barrier() {
		return nil
	}
	if s.round != 0 {
		return fmt.Errorf("%w: already started", ErrInvalidState)
	}
	s.log.Info("session starting", "participants", len(s.participants))
	s.startRound()
	return nil
}

func (s *Session) move(id string, x, y int) error {
	p, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := s.checkTurn(p); err != nil {
		return err
	}

	released, err := p.recordMove(x, y)
	result := "ok"
	if err != nil {
		result = "illegal"
		s.log.Debug("move rejected", "user", id, "x", x, "y", y, "error", err)
	}
	MovesRecorded.WithLabelValues(string(s.policy.Kind()), result).Inc()

	s.settle(p, released)
	return err
}

func (s *Session) skip(id string) error {
	p, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !s.policy.Barrier() {
		return nil
	}
	if err := s.checkTurn(p); err != nil {
		return err
	}

	released, err := p.recordSkip()
	s.settle(p, released)
	return err
}

func (s *Session) checkTurn(p *Participant) error {
	if !s.policy.Barrier() {
		return nil
	}
	if s.round == 0 || s.ended {
		return ErrNotRunning
	}
	if p.ready {
		return ErrAlreadyActed
	}
	return nil
}

// settle routes a participant's action either into the barrier or, when the
// participant is not held by the open round, into a plain change broadcast.
func (s *Session) settle(p *Participant, released bool) {
	if released {
		s.onParticipantReady(p)
		return
	}
	s.publish(s.onChange, EventChange, p.ID())
}

func (s *Session) startRound() {
	s.round++
	s.pending = 0
	s.expired = false
	for _, p := range s.participants {
		if p.active() {
			p.enroll()
			s.pending++
		}
	}

	if s.pending == 0 {
		s.end()
		return
	}

	s.arm()
	RoundsStarted.WithLabelValues(string(s.policy.Kind())).Inc()
	s.log.Debug("round started", "round", s.round, "pending", s.pending)
	s.publish(s.onProgress, EventProgress, "")
}

func (s *Session) arm() {
	s.disarm()

	round := s.round
	s.deadline = s.clock.Now().Add(s.timeout)
	s.timer = s.clock.AfterFunc(s.timeout, func() {
		s.post(func() { s.closeRound(round) })
	})
}

func (s *Session) disarm() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
}

// closeRound runs when the deadline of round fires. Stragglers are skipped,
// which releases them through the normal ready path.
func (s *Session) closeRound(round int) {
	if round != s.round || s.timer == nil {
		s.log.Debug("stale round deadline ignored", "round", round, "current", s.round)
		return
	}
	s.timer = nil
	s.expired = true

	var late []*Participant
	for _, p := range s.sorted() {
		if p.enrolled {
			late = append(late, p)
		}
	}

	kind := string(s.policy.Kind())
	for _, p := range late {
		released, err := p.recordSkip()
		ForcedSkips.WithLabelValues(kind).Inc()
		if err != nil {
			s.log.Warn("forced skip rejected by validator", "user", p.ID(), "error", err)
		}
		s.log.Debug("participant skipped by deadline", "user", p.ID(), "round", round)
		if released {
			s.onParticipantReady(p)
		}
	}
}

func (s *Session) onParticipantReady(p *Participant) {
	s.publish(s.onChange, EventChange, p.ID())

	s.pending--
	if s.pending > 0 {
		return
	}

	reason := "all_ready"
	if s.expired {
		reason = "deadline"
	}
	s.disarm()
	RoundsClosed.WithLabelValues(string(s.policy.Kind()), reason).Inc()
	s.log.Debug("round closed", "round", s.round, "reason", reason)

	if len(s.active()) > 0 {
		s.startRound()
		return
	}
	s.end()
}

func (s *Session) end() {
	s.disarm()
	s.ended = true
	SessionsEnded.WithLabelValues(string(s.policy.Kind())).Inc()
	s.log.Info("session ended", "round", s.round)
	s.publish(s.onEnd, EventEnd, "")
}

func (s *Session) requestOpponent() {
	if s.opponents == nil {
		s.log.Warn("opponent needed but no requester configured")
		return
	}
	ctx, id := s.runCtx, s.id
	go func() {
		if err := s.opponents.RequestOpponent(ctx, id); err != nil {
			s.log.Error("opponent request failed", "error", err)
		}
	}()
	s.log.Info("opponent requested")
}

func (s *Session) publish(b *Broadcaster[Event], kind EventKind, participant string) {
	b.Publish(Event{
		Kind:        kind,
		SessionID:   s.id,
		Round:       s.round,
		Participant: participant,
		At:          s.clock.Now(),
	})
}

// sorted returns participants ordered by identity.
func (s *Session) sorted() []*Participant {
	out := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Participant) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}

// ranked sorts by identity first, then stably by (score, moves) descending,
// so equal scores keep identity order.
func (s *Session) ranked() []*Participant {
	out := s.sorted()
	slices.SortStableFunc(out, func(a, b *Participant) int {
		if c := cmp.Compare(b.validator.Score(), a.validator.Score()); c != 0 {
			return c
		}
		return cmp.Compare(b.validator.Moves(), a.validator.Moves())
	})
	return out
}

func (s *Session) active() []*Participant {
	var out []*Participant
	for _, p := range s.sorted() {
		if p.active() {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) unready() []*Participant {
	var out []*Participant
	for _, p := range s.active() {
		if !p.ready {
			out = append(out, p)
		}
	}
	return out
}

func snapshots(ps []*Participant, includeBoard bool) []Snapshot {
	out := make([]Snapshot, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.snapshot(includeBoard))
	}
	return out
}
