package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage identifies what a progress event reports.
type Stage string

// Progress stages
const (
	// StageStarted marks the beginning of execution for a task.
	StageStarted Stage = "started"

	// StageThinking carries a streamed reasoning fragment.
	StageThinking Stage = "thinking"

	// StageText carries a streamed output fragment.
	StageText Stage = "text"
)

// Progress is one live-progress notification for a task. Deltas are forwarded
// verbatim from the model stream and never affect task status.
type Progress struct {
	TaskID uuid.UUID `json:"task_id"`
	Stage  Stage     `json:"stage"`
	Delta  string    `json:"delta,omitempty"`
	At     time.Time `json:"at"`
}

// Sink consumes progress events. Publish must not block; slow consumers are
// expected to drop or buffer on their side.
type Sink interface {
	Publish(p Progress)
}

// NopSink discards all progress events.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Progress) {}

// LogSink writes progress events to the structured log at debug level.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink on the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "progress_log_sink")}
}

// Publish implements Sink.
func (s *LogSink) Publish(p Progress) {
	s.logger.Debug("task progress",
		"task_id", p.TaskID,
		"stage", p.Stage,
		"delta_len", len(p.Delta))
}

// FanoutSink dispatches each progress event to every registered sink.
type FanoutSink struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *slog.Logger
}

// NewFanoutSink creates an empty FanoutSink.
func NewFanoutSink(logger *slog.Logger) *FanoutSink {
	return &FanoutSink{
		logger: logger.With("component", "progress_fanout"),
	}
}

// Register adds a sink to receive future events.
func (f *FanoutSink) Register(sink Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
	f.logger.Debug("registered progress sink", "sink_count", len(f.sinks))
}

// Publish implements Sink by forwarding to every registered sink.
func (f *FanoutSink) Publish(p Progress) {
	f.mu.RLock()
	sinks := make([]Sink, len(f.sinks))
	copy(sinks, f.sinks)
	f.mu.RUnlock()

	for _, sink := range sinks {
		sink.Publish(p)
	}
}

// Ensure implementations satisfy Sink
var (
	_ Sink = NopSink{}
	_ Sink = (*LogSink)(nil)
	_ Sink = (*FanoutSink)(nil)
)
