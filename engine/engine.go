package engine

import (
	"fmt"
	"raiders/experiments/metrics"
	"raiders/game"
	"raiders/journal"
	"raiders/meta"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/rand"
)

// Source is the randomness provider for raids.
type Source interface {
	// Intn returns a random int in [0, n). n > 0.
	Intn(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSource returns a seeded Source that is safe for concurrent use.
func NewSource(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Policy decides how the stolen totals of a raid are taken out of a base.
type Policy int

const (
	// PolicyFaithful deducts every accumulated total, even when several attackers
	// recorded the same pre-raid amount, so stock can go negative.
	PolicyFaithful Policy = iota
	// PolicyClamped never deducts more than the base currently holds.
	PolicyClamped
)

func (p Policy) String() string {
	switch p {
	case PolicyFaithful:
		return "faithful"
	case PolicyClamped:
		return "clamped"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "faithful":
		return PolicyFaithful, nil
	case "clamped", "clamp":
		return PolicyClamped, nil
	default:
		return 0, fmt.Errorf("unknown theft policy %q", s)
	}
}

type Option func(e *Engine)

func WithSource(src Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

func WithRoster(names []string) Option {
	return func(e *Engine) {
		if len(names) > 0 {
			e.roster = append([]string(nil), names...)
		}
	}
}

// WithAttackers sets the inclusive range the attacker count is drawn from.
func WithAttackers(minCount, maxCount int) Option {
	return func(e *Engine) {
		if minCount > 0 && maxCount >= minCount {
			e.minAttackers = minCount
			e.maxAttackers = maxCount
		}
	}
}

// WithTravelDelay sets the pause before each attacker acts. Zero disables it.
func WithTravelDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.travelDelay = d
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithSink(sink journal.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(e *Engine) {
		if collector != nil {
			e.metrics = collector
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// Engine executes raids against the bases of a registry.
type Engine struct {
	bases        game.Registry
	src          Source
	roster       []string
	minAttackers int
	maxAttackers int
	travelDelay  time.Duration
	policy       Policy
	sink         journal.Sink
	metrics      metrics.Collector
	tracer       trace.Tracer

	sleep func(time.Duration)
	now   func() time.Time
	newID func() string
}

func NewEngine(bases game.Registry, options ...Option) *Engine {
	if bases == nil {
		panic("engine needs a base registry")
	}
	e := &Engine{ // Default values
		bases:        bases,
		src:          NewSource(uint64(time.Now().UnixNano())),
		roster:       meta.ATTACKER_NAMES,
		minAttackers: meta.MIN_ATTACKERS,
		maxAttackers: meta.MAX_ATTACKERS,
		travelDelay:  meta.TRAVEL_DELAY,
		policy:       PolicyFaithful,
		sink:         journal.Discard(),
		metrics:      metrics.NewDummyCollector(),
		tracer:       otel.Tracer("raiders/engine"),
		sleep:        time.Sleep,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
	for _, option := range options {
		option(e)
	}
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) Metrics() metrics.Collector {
	return e.metrics
}

// Source returns the random source shared with the scheduler.
func (e *Engine) Source() Source {
	return e.src
}
