package journal

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes each event as a zerolog line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink logs through the global zerolog logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.Logger}
}

func NewLogSinkWith(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	ev := s.logger.Info().
		Str("raid", e.RaidID).
		Uint64("base", e.BaseID).
		Str("kind", string(e.Kind))
	if e.Attacker != "" {
		ev = ev.Str("attacker", e.Attacker)
	}
	if e.Resource != "" {
		ev = ev.Str("resource", e.Resource).Int("amount", e.Amount)
	}
	if e.Kind == Completed {
		ev = ev.Strs("attackers", e.Attackers).Interface("stolen", e.Stolen)
	}
	ev.Msg(e.String())
}
