package observer

import (
	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/pkg/engine"
)

// LoggerSink logs every engine.Event as a structured line. Grounded on
// the teacher's LoggerObserver (internal/application/observer/
// logger_observer.go), adapted onto zerolog and engine.Event's flatter
// field set (no node/workflow fields to branch on).
type LoggerSink struct {
	log zerolog.Logger
}

func NewLoggerSink(log zerolog.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

func (s *LoggerSink) Name() string { return "logger" }

func (s *LoggerSink) OnEvent(event engine.Event) {
	s.log.Info().
		Str("event_type", event.Type).
		Int("wave", event.Wave).
		Int("level", event.Level).
		Str("check_id", event.CheckID).
		Str("scope", event.Scope).
		Str("phase", event.Phase).
		Str("status", event.Status).
		Int64("duration_ms", event.DurationMs).
		Time("timestamp", event.Timestamp).
		Msg("engine event")
}
