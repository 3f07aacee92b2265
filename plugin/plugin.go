package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	"raiders/config"
	"raiders/engine"
	"raiders/experiments/metrics"
	"raiders/game"
	"raiders/journal"
	"raiders/scheduler"

	"github.com/rs/zerolog/log"
)

type Option func(p *Plugin)

// WithSink adds a sink next to the ones built from config.
func WithSink(sink journal.Sink) Option {
	return func(p *Plugin) {
		if sink != nil {
			p.extraSinks = append(p.extraSinks, sink)
		}
	}
}

// WithSource replaces the seeded random source.
func WithSource(src engine.Source) Option {
	return func(p *Plugin) {
		p.src = src
	}
}

// Plugin owns the registry, the raid engine and the scheduler for one host.
type Plugin struct {
	Config config.Config

	bases     *game.Bases
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
	metrics   metrics.Collector

	src        engine.Source
	extraSinks []journal.Sink
	feed       *journal.Feed
	closers    []func() error
}

// New is the startup hook. args is an inline YAML config (empty for defaults). It builds
// the registry and engine and registers the recurring raid with the host timer.
func New(args string, timer scheduler.Timer, options ...Option) (*Plugin, error) {
	cfg, err := config.Parse(args)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, timer, options...)
}

// NewWithConfig is New for a config that was already loaded, e.g. by config.Load.
func NewWithConfig(cfg config.Config, timer scheduler.Timer, options ...Option) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Plugin{
		Config:  cfg,
		bases:   game.NewBases(),
		metrics: metrics.NewCollector(),
	}
	for _, option := range options {
		option(p)
	}
	if p.src == nil {
		p.src = engine.NewSource(cfg.Seed())
	}

	sink, err := p.openSinks()
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	cfg.SeedBases(p.bases)

	p.engine = engine.NewEngine(p.bases,
		engine.WithSource(p.src),
		engine.WithRoster(cfg.Raid.Roster),
		engine.WithAttackers(cfg.Raid.MinAttackers, cfg.Raid.MaxAttackers),
		engine.WithTravelDelay(cfg.Raid.TravelDelay),
		engine.WithPolicy(cfg.Policy()),
		engine.WithSink(sink),
		engine.WithMetrics(p.metrics),
	)
	p.scheduler = scheduler.NewScheduler(p.bases, p.engine, timer,
		scheduler.WithDelay(cfg.Raid.InitialDelay),
		scheduler.WithInterval(cfg.Raid.Interval),
	)
	p.scheduler.Start()

	log.Info().Int("bases", p.bases.Len()).Str("policy", cfg.Policy().String()).Msg("npc raiders loaded")
	return p, nil
}

func (p *Plugin) openSinks() (journal.Sink, error) {
	sinks := []journal.Sink{journal.NewLogSink()}

	if dir := p.Config.Journal.Dir; dir != "" {
		j := journal.NewFileJournal(filepath.Clean(dir), p.Config.Journal.Prefix)
		p.closers = append(p.closers, j.Close)
		sinks = append(sinks, j)
	}
	if path := p.Config.Index.Path; path != "" {
		idx, err := journal.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open raid index: %w", err)
		}
		p.closers = append(p.closers, idx.Close)
		sinks = append(sinks, idx)
	}
	if p.Config.Feed.Listen != "" {
		p.feed = journal.NewFeed()
		sinks = append(sinks, p.feed)
	}

	sinks = append(sinks, p.extraSinks...)
	return journal.Multi(sinks...), nil
}

func (p *Plugin) AddBase(id game.BaseID, location game.Location) {
	p.bases.AddBase(id, location)
}

func (p *Plugin) RemoveBase(id game.BaseID) {
	p.bases.RemoveBase(id)
}

func (p *Plugin) AddResource(id game.BaseID, name string, amount int) bool {
	return p.bases.AddResource(id, name, amount)
}

func (p *Plugin) Registry() *game.Bases {
	return p.bases
}

func (p *Plugin) Engine() *engine.Engine {
	return p.engine
}

func (p *Plugin) Scheduler() *scheduler.Scheduler {
	return p.scheduler
}

// Feed returns the websocket feed, or nil when it is not configured.
func (p *Plugin) Feed() *journal.Feed {
	return p.feed
}

// LastRaid returns the metrics of the most recent finished raid. Safe to call while
// a raid is running.
func (p *Plugin) LastRaid() metrics.RaidMetric {
	return p.metrics.Complete()
}

// Close stops the scheduler and flushes every sink.
func (p *Plugin) Close() error {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
