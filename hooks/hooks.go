// Package hooks provides the Hook, Logger and MetricsCollector
// implementations wired into the converter.
package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Erithax/zune-image/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

// NewHandlerLogger builds a slog logger writing to w. format is "json" or
// "text"; level is one of debug, info, warn, error.
func NewHandlerLogger(w io.Writer, level, format string) (*SlogLogger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	return NewSlogLogger(slog.New(h)), nil
}

// With returns a logger that adds fields to every record.
func (s *SlogLogger) With(fields ...interface{}) *SlogLogger {
	return &SlogLogger{log: s.log.With(fields...)}
}

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, fields...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, fields...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, fields...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, fields...)
}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline step.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStep(ctx context.Context, stepName string, img *core.ImageData) context.Context {
	if img == nil {
		h.logger.Debug("pipeline.step.start", "step", stepName)
		return ctx
	}
	h.logger.Debug("pipeline.step.start",
		"step", stepName,
		"colorspace", img.Meta.ColorSpace,
		"width", img.Meta.Width,
		"height", img.Meta.Height,
	)
	return ctx
}

func (h *LoggingHook) AfterStep(_ context.Context, stepName string, img *core.ImageData, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("pipeline.step.error",
			"step", stepName,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	out := "nil"
	if img != nil {
		out = fmt.Sprintf("%dx%d %s depth=%d", img.Meta.Width, img.Meta.Height, img.Meta.ColorSpace, img.Meta.Depth)
	}
	h.logger.Debug("pipeline.step.done",
		"step", stepName,
		"duration_ms", d.Milliseconds(),
		"output", out,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// StepStats aggregates every observation of one step name.
type StepStats struct {
	Calls  int64
	Errors int64
	Total  time.Duration
	Max    time.Duration
}

// Mean is the average duration per call, 0 before the first call.
func (s StepStats) Mean() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

// InMemoryMetrics keeps per-step statistics for a single run. It is safe for
// concurrent use.
type InMemoryMetrics struct {
	mu      sync.Mutex
	steps   map[string]StepStats
	encoded atomic.Int64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{steps: make(map[string]StepStats)}
}

func (m *InMemoryMetrics) RecordProcessingTime(stepName string, d interface{ Seconds() float64 }) {
	dur := time.Duration(d.Seconds() * float64(time.Second))
	m.mu.Lock()
	st := m.steps[stepName]
	st.Calls++
	st.Total += dur
	st.Max = max(st.Max, dur)
	m.steps[stepName] = st
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) { m.encoded.Add(bytes) }

func (m *InMemoryMetrics) RecordError(stepName string, _ string) {
	m.mu.Lock()
	st := m.steps[stepName]
	st.Errors++
	m.steps[stepName] = st
	m.mu.Unlock()
}

// Snapshot returns a copy of the current statistics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		Steps:        make(map[string]StepStats, len(m.steps)),
		EncodedBytes: m.encoded.Load(),
	}
	for k, v := range m.steps {
		snap.Steps[k] = v
	}
	return snap
}

// MetricsSnapshot is a point-in-time copy of InMemoryMetrics.
type MetricsSnapshot struct {
	Steps        map[string]StepStats
	EncodedBytes int64
}

// Names returns the recorded step names in lexical order.
func (s MetricsSnapshot) Names() []string {
	names := make([]string, 0, len(s.Steps))
	for k := range s.Steps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds pipeline events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStep(ctx context.Context, _ string, _ *core.ImageData) context.Context {
	return ctx
}

func (h *MetricsHook) AfterStep(_ context.Context, stepName string, _ *core.ImageData, d time.Duration, err error) {
	h.collector.RecordProcessingTime(stepName, d)
	if err != nil {
		h.collector.RecordError(stepName, "pipeline")
	}
}

// ── Fan-out ───────────────────────────────────────────────────────────────────

// Collectors fans every observation out to each collector.
type Collectors []core.MetricsCollector

func (c Collectors) RecordProcessingTime(stepName string, d interface{ Seconds() float64 }) {
	for _, m := range c {
		m.RecordProcessingTime(stepName, d)
	}
}

func (c Collectors) RecordThroughput(bytes int64) {
	for _, m := range c {
		m.RecordThroughput(bytes)
	}
}

func (c Collectors) RecordError(stepName, category string) {
	for _, m := range c {
		m.RecordError(stepName, category)
	}
}
