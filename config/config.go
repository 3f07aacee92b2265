package config

import (
	"errors"
	"fmt"
	"os"
	"raiders/engine"
	"raiders/game"
	"raiders/meta"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values come from defaults, then YAML,
// then RAIDERS_* environment variables.
type Config struct {
	Raid      Raid         `yaml:"raid" envPrefix:"RAIDERS_RAID_"`
	Journal   Journal      `yaml:"journal" envPrefix:"RAIDERS_JOURNAL_"`
	Index     Index        `yaml:"index" envPrefix:"RAIDERS_INDEX_"`
	Feed      Feed         `yaml:"feed" envPrefix:"RAIDERS_FEED_"`
	Log       Log          `yaml:"log" envPrefix:"RAIDERS_LOG_"`
	Telemetry Telemetry    `yaml:"telemetry" envPrefix:"RAIDERS_TELEMETRY_"`
	Bases     []BaseConfig `yaml:"bases"`
}

type Raid struct {
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	TravelDelay  time.Duration `yaml:"travel_delay" env:"TRAVEL_DELAY"`
	MinAttackers int           `yaml:"min_attackers" env:"MIN_ATTACKERS"`
	MaxAttackers int           `yaml:"max_attackers" env:"MAX_ATTACKERS"`
	Roster       []string      `yaml:"roster" env:"ROSTER" envSeparator:","`
	Seed         uint64        `yaml:"seed" env:"SEED"` // 0 seeds from the clock
	Policy       string        `yaml:"policy" env:"POLICY"`
}

// Journal enables the compressed JSONL event journal when Dir is set.
type Journal struct {
	Dir    string `yaml:"dir" env:"DIR"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

// Index enables the SQLite raid index when Path is set.
type Index struct {
	Path string `yaml:"path" env:"PATH"`
}

// Feed enables the websocket observer feed when Listen is set.
type Feed struct {
	Listen string `yaml:"listen" env:"LISTEN"`
}

type Log struct {
	Level   string `yaml:"level" env:"LEVEL"`
	Console bool   `yaml:"console" env:"CONSOLE"`
}

type Telemetry struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// BaseConfig seeds a base at startup.
type BaseConfig struct {
	ID        uint64          `yaml:"id"`
	Location  game.Location   `yaml:"location"`
	Resources []game.Resource `yaml:"resources"`
}

func Defaults() Config {
	return Config{
		Raid: Raid{
			InitialDelay: meta.FIRST_RAID_DELAY,
			Interval:     meta.RAID_INTERVAL,
			TravelDelay:  meta.TRAVEL_DELAY,
			MinAttackers: meta.MIN_ATTACKERS,
			MaxAttackers: meta.MAX_ATTACKERS,
			Roster:       append([]string(nil), meta.ATTACKER_NAMES...),
			Policy:       engine.PolicyFaithful.String(),
		},
		Journal: Journal{Prefix: "raids"},
		Log:     Log{Level: "info", Console: true},
		Telemetry: Telemetry{
			ServiceName: "raiders",
		},
	}
}

// Parse reads an inline YAML document. An empty document yields the defaults.
// Environment overrides are applied afterwards.
func Parse(doc string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(doc) != "" {
		if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads a YAML config file. A missing path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse("")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(string(raw))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	r := c.Raid
	if r.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("raid.initial_delay must not be negative"))
	}
	if r.Interval <= 0 {
		errs = append(errs, fmt.Errorf("raid.interval must be positive"))
	}
	if r.TravelDelay < 0 {
		errs = append(errs, fmt.Errorf("raid.travel_delay must not be negative"))
	}
	if r.MinAttackers < 1 || r.MaxAttackers < r.MinAttackers {
		errs = append(errs, fmt.Errorf("raid attackers range [%d,%d] is invalid", r.MinAttackers, r.MaxAttackers))
	}
	if len(r.Roster) == 0 {
		errs = append(errs, fmt.Errorf("raid.roster must not be empty"))
	}
	if _, err := engine.ParsePolicy(r.Policy); err != nil {
		errs = append(errs, err)
	}
	seen := map[uint64]bool{}
	for _, b := range c.Bases {
		if seen[b.ID] {
			errs = append(errs, fmt.Errorf("base %d listed twice", b.ID))
		}
		seen[b.ID] = true
	}
	return errors.Join(errs...)
}

// Policy returns the parsed theft policy. Validate has already checked it.
func (c Config) Policy() engine.Policy {
	p, _ := engine.ParsePolicy(c.Raid.Policy)
	return p
}

// Seed returns the configured seed, or a clock-derived one when unset.
func (c Config) Seed() uint64 {
	if c.Raid.Seed != 0 {
		return c.Raid.Seed
	}
	return uint64(time.Now().UnixNano())
}

// SeedBases loads the configured bases into a registry.
func (c Config) SeedBases(bases *game.Bases) {
	for _, b := range c.Bases {
		bases.AddBase(b.ID, b.Location)
		for _, r := range b.Resources {
			bases.AddResource(b.ID, r.Name, r.Amount)
		}
	}
}
