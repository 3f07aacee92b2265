package journal

import (
	"fmt"
	"time"
)

type Kind string

const (
	Departed  Kind = "departed"  // An attacker set off towards the base
	Stole     Kind = "stole"     // An attacker took a resource
	Deducted  Kind = "deducted"  // A stolen total was removed from the base
	Completed Kind = "completed" // The raid finished
)

// Event is one progress line of a raid.
type Event struct {
	Kind     Kind      `json:"kind"`
	RaidID   string    `json:"raid_id"`
	BaseID   uint64    `json:"base_id"`
	Attacker string    `json:"attacker,omitempty"`
	Resource string    `json:"resource,omitempty"`
	Amount   int       `json:"amount,omitempty"`
	Time     time.Time `json:"time"`

	// Summary, only set on Completed
	Attackers []string       `json:"attackers,omitempty"`
	Stolen    map[string]int `json:"stolen,omitempty"`
}

// String renders the event as a human-readable line.
func (e Event) String() string {
	switch e.Kind {
	case Departed:
		return fmt.Sprintf("%s is heading out to raid base %d...", e.Attacker, e.BaseID)
	case Stole:
		return fmt.Sprintf("%s stole %d %s!", e.Attacker, e.Amount, e.Resource)
	case Deducted:
		return fmt.Sprintf("%d %s stolen. Removing from base %d...", e.Amount, e.Resource, e.BaseID)
	case Completed:
		return fmt.Sprintf("Raid on base %d is over.", e.BaseID)
	default:
		return fmt.Sprintf("raid %s: unknown event %q", e.RaidID, e.Kind)
	}
}

// Sink consumes raid events. Emit must not block the raid for long and never fails it.
type Sink interface {
	Emit(e Event)
}

type multiSink []Sink

// Multi fans every event out to all sinks in order. Nil sinks are dropped.
func Multi(sinks ...Sink) Sink {
	var m multiSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

type discard struct{}

// Discard drops every event.
func Discard() Sink {
	return discard{}
}

func (discard) Emit(Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// Kinds returns the kind of each recorded event in order.
func (r *Recorder) Kinds() []Kind {
	kinds := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		kinds[i] = e.Kind
	}
	return kinds
}
