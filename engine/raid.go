package engine

import (
	"context"
	"raiders/game"
	"raiders/journal"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Theft is what one attacker did during a raid. Resource is empty when the
// attacker found nothing to take.
type Theft struct {
	Attacker string
	Resource string
	Amount   int
}

// Outcome describes one finished raid. It is not persisted by the engine.
type Outcome struct {
	RaidID    string
	BaseID    game.BaseID
	Location  game.Location
	Attackers []string
	Thefts    []Theft
	Stolen    map[string]int // Stolen-totals table
	Deducted  map[string]int // What was actually removed from the base
	StartTime time.Time
	EndTime   time.Time
}

// RaidBase sends a random party of attackers against base id and removes what they
// steal. It reports false, with no side effects, when the base does not exist.
// A started raid always runs to completion; ctx only carries the trace.
func (e *Engine) RaidBase(ctx context.Context, id game.BaseID) (Outcome, bool) {
	location, ok := e.bases.Location(id)
	if !ok {
		return Outcome{}, false
	}

	_, span := e.tracer.Start(ctx, "raid", trace.WithAttributes(attribute.String("base.id", strconv.FormatUint(id, 10))))
	defer span.End()

	out := Outcome{
		RaidID:    e.newID(),
		BaseID:    id,
		Location:  location,
		Stolen:    map[string]int{},
		Deducted:  map[string]int{},
		StartTime: e.now(),
	}
	e.metrics.Start(id)

	count := e.minAttackers + e.src.Intn(e.maxAttackers-e.minAttackers+1)
	log.Debug().Str("raid", out.RaidID).Uint64("base", id).Int("attackers", count).Msg("raid started")

	var order []string // Resource names in the order they were first stolen
	for i := 0; i < count; i++ {
		attacker := e.roster[e.src.Intn(len(e.roster))]
		out.Attackers = append(out.Attackers, attacker)
		e.metrics.AddAttacker()
		e.emit(journal.Event{Kind: journal.Departed, RaidID: out.RaidID, BaseID: id, Attacker: attacker})

		if e.travelDelay > 0 {
			e.sleep(e.travelDelay)
		}

		inv, ok := e.bases.Resources(id)
		if !ok || inv.Len() == 0 {
			out.Thefts = append(out.Thefts, Theft{Attacker: attacker})
			e.metrics.AddEmptyHanded()
			continue
		}

		picked := inv[e.src.Intn(inv.Len())]
		if _, seen := out.Stolen[picked.Name]; !seen {
			order = append(order, picked.Name)
		}
		out.Stolen[picked.Name] += picked.Amount
		out.Thefts = append(out.Thefts, Theft{Attacker: attacker, Resource: picked.Name, Amount: picked.Amount})
		e.metrics.AddTheft(picked.Amount)
		e.emit(journal.Event{Kind: journal.Stole, RaidID: out.RaidID, BaseID: id, Attacker: attacker, Resource: picked.Name, Amount: picked.Amount})
	}

	for _, name := range order {
		e.deduct(&out, name)
	}

	e.metrics.Finish()

	out.EndTime = e.now()
	total := 0
	for _, amount := range out.Stolen {
		total += amount
	}
	span.SetAttributes(
		attribute.String("raid.id", out.RaidID),
		attribute.Int("raid.attackers", len(out.Attackers)),
		attribute.Int("raid.stolen", total),
		attribute.String("raid.policy", e.policy.String()),
	)
	e.emit(journal.Event{
		Kind:      journal.Completed,
		RaidID:    out.RaidID,
		BaseID:    id,
		Attackers: out.Attackers,
		Stolen:    out.Stolen,
	})
	return out, true
}

func (e *Engine) deduct(out *Outcome, name string) {
	amount := out.Stolen[name]
	if amount == 0 {
		return
	}

	var remaining int
	if e.policy == PolicyClamped {
		taken, left, ok := e.bases.TakeResource(out.BaseID, name, amount)
		if !ok {
			log.Warn().Str("raid", out.RaidID).Uint64("base", out.BaseID).Str("resource", name).Msg("base vanished before deduction")
			return
		}
		if taken <= 0 {
			return
		}
		amount, remaining = taken, left
	} else {
		if !e.bases.AddResource(out.BaseID, name, -amount) {
			log.Warn().Str("raid", out.RaidID).Uint64("base", out.BaseID).Str("resource", name).Msg("base vanished before deduction")
			return
		}
		if inv, ok := e.bases.Resources(out.BaseID); ok {
			remaining, _ = inv.Get(name)
		}
	}
	out.Deducted[name] = amount

	e.metrics.AddDeduction(amount, remaining)
	e.emit(journal.Event{Kind: journal.Deducted, RaidID: out.RaidID, BaseID: out.BaseID, Resource: name, Amount: amount})
}

func (e *Engine) emit(ev journal.Event) {
	ev.Time = e.now().UTC()
	e.sink.Emit(ev)
}
