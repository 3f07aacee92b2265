package experiments

import (
	"context"
	"fmt"
	"raiders/config"
	"raiders/engine"
	"raiders/experiments/metrics"
	"raiders/game"
	"raiders/scheduler"

	"github.com/rs/zerolog/log"
)

const NumRaids = 1000 // Per run

// Result is everything one experiment produced.
type Result struct {
	Dir     string // Where the CSV files went, empty when not written
	Runs    []metrics.RunConfig
	Records []metrics.RaidRecord
	Final   map[int]*game.Bases // Registry state after each run, by run id
}

// RunRaidExperiment raids the configured bases numRaids times under each theft
// policy, starting every run from the same registry and seed, and writes the raid
// records under outDir when it is not empty.
func RunRaidExperiment(cfg config.Config, numRaids int, outDir string) (Result, error) {
	if numRaids <= 0 {
		numRaids = NumRaids
	}
	initial := game.NewBases()
	cfg.SeedBases(initial)
	if initial.Len() == 0 {
		return Result{}, fmt.Errorf("experiment needs at least one base in the config")
	}

	seed := cfg.Seed()
	runs := []metrics.RunConfig{}
	for i, policy := range []engine.Policy{engine.PolicyFaithful, engine.PolicyClamped} {
		runs = append(runs, metrics.RunConfig{
			ID:        i + 1,
			Policy:    policy.String(),
			Raids:     numRaids,
			Bases:     initial.Len(),
			Seed:      seed,
			Attackers: [2]int{cfg.Raid.MinAttackers, cfg.Raid.MaxAttackers},
		})
	}

	result := Result{Runs: runs, Final: map[int]*game.Bases{}}
	log.Info().Msgf("starting policy experiment with %d raids per run...", numRaids)

	for _, run := range runs {
		log.Info().Msgf("starting run %d of %d (%s)...", run.ID, len(runs), run.Policy)

		bases := initial.Copy()
		policy, _ := engine.ParsePolicy(run.Policy)
		records := runRaids(cfg, bases, policy, run, len(result.Records))
		result.Records = append(result.Records, records...)
		result.Final[run.ID] = bases

		log.Info().Msgf("completed run %d with %d raids", run.ID, len(records))
	}

	log.Info().Msg("completed policy experiment")

	if outDir == "" {
		return result, nil
	}

	writer, err := metrics.NewWriter(outDir, "policy")
	if err != nil {
		return result, fmt.Errorf("failed to create experiment writer: %w", err)
	}
	result.Dir = writer.Dir()

	err = writer.WriteRunConfigs(runs)
	if err != nil {
		return result, fmt.Errorf("failed to store run configs: %w", err)
	}
	err = writer.WriteRaidRecords(result.Records)
	if err != nil {
		return result, fmt.Errorf("failed to write raid records: %w", err)
	}
	log.Info().Msgf("stored raid records in %s", writer.Dir())

	return result, nil
}

func runRaids(cfg config.Config, bases *game.Bases, policy engine.Policy, run metrics.RunConfig, offset int) []metrics.RaidRecord {
	collector := metrics.NewCollector()
	eng := engine.NewEngine(bases,
		engine.WithSource(engine.NewSource(run.Seed)),
		engine.WithRoster(cfg.Raid.Roster),
		engine.WithAttackers(cfg.Raid.MinAttackers, cfg.Raid.MaxAttackers),
		engine.WithTravelDelay(0),
		engine.WithPolicy(policy),
		engine.WithMetrics(collector),
	)
	// Ticks are driven directly, the timer is never started.
	sched := scheduler.NewScheduler(bases, eng, nil)

	records := make([]metrics.RaidRecord, 0, run.Raids)
	for i := 0; i < run.Raids; i++ {
		if _, ok := sched.Tick(context.Background()); !ok {
			continue
		}
		records = append(records, metrics.RaidRecord{
			ID:         offset + len(records) + 1,
			Run:        run.ID,
			Policy:     run.Policy,
			RaidMetric: collector.Complete(),
		})
	}
	return records
}
