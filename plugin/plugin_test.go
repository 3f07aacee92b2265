package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"raiders/config"
	"raiders/game"
	"raiders/journal"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	delay, period time.Duration
	fn            func()
	stopped       bool
}

func (f *fakeTimer) Schedule(delay, period time.Duration, fn func()) func() {
	f.delay, f.period, f.fn = delay, period, fn
	return func() { f.stopped = true }
}

// firstSource always draws 0: one attacker, first roster name, first resource.
type firstSource struct{}

func (firstSource) Intn(int) int { return 0 }

func TestNew(t *testing.T) {
	t.Run("registers the raid timer with defaults", func(t *testing.T) {
		timer := &fakeTimer{}

		p, err := New("", timer)
		require.NoError(t, err)
		defer p.Close()

		require.Equal(t, 5*time.Second, timer.delay)
		require.Equal(t, 14400*time.Second, timer.period)
		require.NotNil(t, timer.fn)
		require.Equal(t, 0, p.Registry().Len())
		require.Nil(t, p.Feed())
	})

	t.Run("rejects a bad config", func(t *testing.T) {
		timer := &fakeTimer{}

		_, err := New("raid: {min_attackers: 0}", timer)

		require.Error(t, err)
		require.Nil(t, timer.fn, "Nothing should be scheduled")
	})

	t.Run("timer tick raids a seeded base", func(t *testing.T) {
		dir := t.TempDir()
		args := fmt.Sprintf(`
raid:
  travel_delay: 0s
  initial_delay: 1s
  interval: 1h
journal:
  dir: %s
index:
  path: %s
bases:
  - id: 1
    resources: [{name: wood, amount: 100}, {name: stone, amount: 50}]
`, filepath.Join(dir, "journal"), filepath.Join(dir, "raids.db"))
		timer := &fakeTimer{}
		rec := &journal.Recorder{}

		p, err := New(args, timer, WithSource(firstSource{}), WithSink(rec))
		require.NoError(t, err)

		require.Equal(t, time.Second, timer.delay)
		require.Equal(t, time.Hour, timer.period)

		timer.fn()

		inv, ok := p.Registry().Resources(1)
		require.True(t, ok)
		require.Equal(t, map[string]int{"wood": 0, "stone": 50}, inv.Map())
		require.Equal(t, []journal.Kind{journal.Departed, journal.Stole, journal.Deducted, journal.Completed}, rec.Kinds())
		require.Equal(t, 1, p.LastRaid().Attackers)
		require.Equal(t, 100, p.LastRaid().Deducted)
		require.Equal(t, int64(1), p.Scheduler().Raids())

		require.NoError(t, p.Close())
		require.True(t, timer.stopped)

		entries, err := os.ReadDir(filepath.Join(dir, "journal"))
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		var events []journal.Event
		for _, entry := range entries {
			got, err := journal.ReadFile(filepath.Join(dir, "journal", entry.Name()))
			require.NoError(t, err)
			events = append(events, got...)
		}
		require.Len(t, events, len(rec.Events))
		for i := range events {
			require.Equal(t, rec.Events[i].Kind, events[i].Kind)
			require.Equal(t, rec.Events[i].RaidID, events[i].RaidID)
			require.Equal(t, rec.Events[i].Amount, events[i].Amount)
		}
	})
}

func TestNewWithConfig(t *testing.T) {
	t.Run("uses a loaded config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "raiders.yaml")
		require.NoError(t, os.WriteFile(path, []byte("raid:\n  interval: 2h\nbases:\n  - id: 4\n"), 0o644))
		cfg, err := config.Load(path)
		require.NoError(t, err)
		timer := &fakeTimer{}

		p, err := NewWithConfig(cfg, timer)
		require.NoError(t, err)
		defer p.Close()

		require.Equal(t, 2*time.Hour, timer.period)
		require.Equal(t, []game.BaseID{4}, p.Registry().IDs())
	})

	t.Run("rejects an invalid config", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Raid.Roster = nil
		timer := &fakeTimer{}

		_, err := NewWithConfig(cfg, timer)

		require.Error(t, err)
		require.Nil(t, timer.fn)
	})
}

func TestPluginLastRaid(t *testing.T) {
	t.Run("reports a finished raid", func(t *testing.T) {
		timer := &fakeTimer{}
		p, err := New("raid: {travel_delay: 0s}\nbases: [{id: 1, resources: [{name: wood, amount: 10}]}]", timer, WithSource(firstSource{}))
		require.NoError(t, err)
		defer p.Close()
		require.Zero(t, p.LastRaid().Attackers, "No raid has finished yet")

		timer.fn()
		first := p.LastRaid()
		time.Sleep(2 * time.Millisecond)

		require.Equal(t, uint64(1), first.BaseID)
		require.Equal(t, 10, first.Deducted)
		require.Equal(t, first, p.LastRaid(), "The snapshot does not change after the raid")
	})

	t.Run("can be read while the timer raids", func(t *testing.T) {
		timer := &fakeTimer{}
		p, err := New("raid: {travel_delay: 0s}\nbases: [{id: 1, resources: [{name: wood, amount: 10}]}]", timer)
		require.NoError(t, err)
		defer p.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				timer.fn()
				p.AddResource(1, "wood", 10)
			}
		}()
		for i := 0; i < 200; i++ {
			m := p.LastRaid()
			if m.Attackers > 0 {
				require.Equal(t, uint64(1), m.BaseID)
				require.LessOrEqual(t, m.Attackers, 5)
			}
		}
		<-done

		require.Equal(t, int64(200), p.Scheduler().Raids())
	})
}

func TestPluginBaseLifecycle(t *testing.T) {
	p, err := New("raid: {travel_delay: 0s}", &fakeTimer{}, WithSource(firstSource{}))
	require.NoError(t, err)
	defer p.Close()

	p.AddBase(3, game.Location{X: 1, Y: 2, Z: 3})
	require.True(t, p.AddResource(3, "metal", 12))
	require.False(t, p.AddResource(4, "metal", 12))

	out, ok := p.Scheduler().Tick(context.Background())
	require.True(t, ok)
	require.Equal(t, game.BaseID(3), out.BaseID)
	require.Equal(t, game.Location{X: 1, Y: 2, Z: 3}, out.Location)
	require.Equal(t, map[string]int{"metal": 12}, out.Stolen)

	p.RemoveBase(3)
	p.RemoveBase(3)
	_, ok = p.Scheduler().Tick(context.Background())
	require.False(t, ok, "No bases left to raid")
}
