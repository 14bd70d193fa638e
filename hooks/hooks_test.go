package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Erithax/zune-image/core"
)

func TestNewHandlerLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewHandlerLogger(&buf, "info", "json")
	if err != nil {
		t.Fatal(err)
	}
	l.With("run", "abc").Info("hello", "n", 3)
	l.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["run"] != "abc" || rec["n"] != float64(3) {
		t.Errorf("record: %v", rec)
	}

	if _, err := NewHandlerLogger(&buf, "loud", "text"); err == nil {
		t.Error("bad level should fail")
	}
	if _, err := NewHandlerLogger(&buf, "info", "xml"); err == nil {
		t.Error("bad format should fail")
	}
}

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	l, _ := NewHandlerLogger(&buf, "debug", "text")
	h := NewLoggingHook(l)

	img := &core.ImageData{Meta: core.Metadata{Width: 4, Height: 2, ColorSpace: core.ColorSpaceRGB, Depth: 8}}
	ctx := h.BeforeStep(context.Background(), "flip", img)
	h.AfterStep(ctx, "flip", img, time.Millisecond, nil)
	h.AfterStep(ctx, "crop", nil, time.Millisecond, errors.New("out of bounds"))

	out := buf.String()
	for _, want := range []string{"pipeline.step.start", "pipeline.step.done", "4x2 rgb", "pipeline.step.error", "out of bounds"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsHook(t *testing.T) {
	m := NewInMemoryMetrics()
	h := NewMetricsHook(m)
	h.AfterStep(context.Background(), "resize", nil, 2*time.Second, nil)
	h.AfterStep(context.Background(), "resize", nil, time.Second, errors.New("x"))
	m.RecordThroughput(100)

	snap := m.Snapshot()
	st := snap.Steps["resize"]
	if st.Calls != 2 || st.Total != 3*time.Second || st.Max != 2*time.Second || st.Mean() != 1500*time.Millisecond {
		t.Errorf("durations: %+v", st)
	}
	if st.Errors != 1 || snap.EncodedBytes != 100 {
		t.Errorf("errors/bytes: %+v", snap)
	}
	if got := strings.Join(snap.Names(), ","); got != "resize" {
		t.Errorf("names: %s", got)
	}
}

func TestPrometheusMetrics_Textfile(t *testing.T) {
	p := NewPrometheusMetrics()
	mem := NewInMemoryMetrics()
	all := Collectors{p, mem}

	all.RecordProcessingTime("encode:png", 20*time.Millisecond)
	all.RecordProcessingTime("grayscale", time.Millisecond)
	all.RecordError("decode:ppm", "decode")
	all.RecordThroughput(512)

	path := filepath.Join(t.TempDir(), "zune.prom")
	if err := p.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	for _, want := range []string{
		`zune_step_duration_seconds_count{kind="encode",step="png"} 1`,
		`zune_step_duration_seconds_count{kind="operation",step="grayscale"} 1`,
		`zune_step_errors_total{category="decode",kind="decode",step="ppm"} 1`,
		`zune_encoded_bytes_total 512`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
	if mem.Snapshot().EncodedBytes != 512 {
		t.Error("fan-out did not reach the in-memory collector")
	}
}

func TestTracingHook(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	h := NewTracingHook(tp.Tracer("test"))

	img := &core.ImageData{Meta: core.Metadata{Width: 3, Height: 3}}
	ctx := h.BeforeStep(context.Background(), "blur", img)
	h.AfterStep(ctx, "blur", img, time.Millisecond, nil)
	ctx = h.BeforeStep(context.Background(), "crop", img)
	h.AfterStep(ctx, "crop", nil, time.Millisecond, errors.New("bad crop"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans", len(spans))
	}
	if spans[0].Name() != "zune.step blur" {
		t.Errorf("name: %s", spans[0].Name())
	}
	if spans[1].Status().Description != "bad crop" {
		t.Errorf("status: %+v", spans[1].Status())
	}
}

func TestSetupTracing(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TraceConfig{Exporter: "none"}, nil, nil)
	if err != nil || shutdown(context.Background()) != nil {
		t.Fatalf("disabled tracing: %v", err)
	}
	if _, err := SetupTracing(context.Background(), TraceConfig{Exporter: "otlp"}, nil, nil); err == nil {
		t.Error("otlp without endpoint should fail")
	}
	if _, err := SetupTracing(context.Background(), TraceConfig{Exporter: "jaeger"}, nil, nil); err == nil {
		t.Error("unknown exporter should fail")
	}
}

func TestSetupTracing_Stdout(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	var buf bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), TraceConfig{ServiceName: "zune-test", Exporter: "stdout"}, &buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := NewTracingHook(nil)
	ctx := h.BeforeStep(context.Background(), "flip", nil)
	h.AfterStep(ctx, "flip", nil, time.Millisecond, nil)
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"zune.step flip", "zune-test"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("exported spans missing %q", want)
		}
	}
}
