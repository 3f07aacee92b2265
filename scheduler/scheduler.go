package scheduler

import (
	"context"
	"raiders/engine"
	"raiders/game"
	"raiders/meta"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type State int32

const (
	Idle State = iota
	Raiding
)

func (s State) String() string {
	if s == Raiding {
		return "raiding"
	}
	return "idle"
}

type Option func(s *Scheduler)

func WithDelay(delay time.Duration) Option {
	return func(s *Scheduler) {
		if delay >= 0 {
			s.delay = delay
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithSource overrides the random source used to pick targets. Defaults to the engine's.
func WithSource(src engine.Source) Option {
	return func(s *Scheduler) {
		if src != nil {
			s.src = src
		}
	}
}

// WithOutcomes receives every finished raid, on the timer goroutine.
func WithOutcomes(fn func(engine.Outcome)) Option {
	return func(s *Scheduler) {
		s.onOutcome = fn
	}
}

// Scheduler fires one raid per tick against a base picked uniformly at random.
type Scheduler struct {
	bases     game.Registry
	engine    *engine.Engine
	timer     Timer
	src       engine.Source
	delay     time.Duration
	interval  time.Duration
	onOutcome func(engine.Outcome)

	state atomic.Int32
	raids atomic.Int64

	mu   sync.Mutex
	stop func()
}

func NewScheduler(bases game.Registry, eng *engine.Engine, timer Timer, options ...Option) *Scheduler {
	s := &Scheduler{ // Default values
		bases:    bases,
		engine:   eng,
		timer:    timer,
		src:      eng.Source(),
		delay:    meta.FIRST_RAID_DELAY,
		interval: meta.RAID_INTERVAL,
	}
	for _, option := range options {
		option(s)
	}
	if s.timer == nil {
		s.timer = LocalTimer{}
	}
	return s
}

// Start registers the recurring raid with the timer. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	log.Info().Msgf("first raid in %s, then every %s", s.delay, s.interval)
	s.stop = s.timer.Schedule(s.delay, s.interval, func() {
		s.Tick(context.Background())
	})
}

// Stop cancels future ticks. A raid already in progress still completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// Tick runs one scheduling round: it picks a random base and raids it synchronously.
// It reports false when no raid ran, either because there are no bases or because
// another raid is still in progress.
func (s *Scheduler) Tick(ctx context.Context) (engine.Outcome, bool) {
	if !s.state.CompareAndSwap(int32(Idle), int32(Raiding)) {
		log.Warn().Msg("tick skipped: previous raid still in progress")
		return engine.Outcome{}, false
	}
	defer s.state.Store(int32(Idle))

	ids := s.bases.IDs()
	if len(ids) == 0 {
		log.Debug().Msg("tick skipped: no bases registered")
		return engine.Outcome{}, false
	}

	id := ids[s.src.Intn(len(ids))]
	out, ok := s.engine.RaidBase(ctx, id)
	if !ok {
		// Removed between listing and raiding
		return engine.Outcome{}, false
	}
	s.raids.Add(1)
	if s.onOutcome != nil {
		s.onOutcome(out)
	}
	return out, true
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Raids returns how many raids have completed.
func (s *Scheduler) Raids() int64 {
	return s.raids.Load()
}
