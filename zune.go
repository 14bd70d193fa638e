// Package zune converts images between formats, applying an ordered chain of
// operations on the way. A Converter processes every input in declaration
// order: sniff the format, decode, run the chain, then encode the result to
// every requested output.
package zune

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Erithax/zune-image/adapters/decoder"
	"github.com/Erithax/zune-image/adapters/display"
	"github.com/Erithax/zune-image/adapters/encoder"
	"github.com/Erithax/zune-image/adapters/storage"
	"github.com/Erithax/zune-image/adapters/vips"
	"github.com/Erithax/zune-image/config"
	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
	"github.com/Erithax/zune-image/hooks"
	"github.com/Erithax/zune-image/operations"
	"github.com/Erithax/zune-image/pipeline"
	"github.com/Erithax/zune-image/utils"
)

// StdinSelector names standard input as an input source.
const StdinSelector = "-"

// ── Registry ──────────────────────────────────────────────────────────────────

var (
	defaultOnce     sync.Once
	defaultRegistry *core.DefaultRegistry
)

// DefaultRegistry returns the process-wide registry built from
// config.Default(). It is populated once and never mutated afterwards.
func DefaultRegistry() *core.DefaultRegistry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(config.Default())
	})
	return defaultRegistry
}

// NewRegistry returns a registry with every built-in codec, plus the libvips
// codecs when the binary is built with them.
func NewRegistry(cfg config.Config) *core.DefaultRegistry {
	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatGIF, decoder.NewGIF())
	reg.RegisterDecoder(core.FormatBMP, decoder.NewBMP())
	reg.RegisterDecoder(core.FormatTIFF, decoder.NewTIFF())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterDecoder(core.FormatPPM, decoder.NewPNM())

	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.DefaultQuality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatGIF, encoder.NewGIF())
	reg.RegisterEncoder(core.FormatBMP, encoder.NewBMP())
	reg.RegisterEncoder(core.FormatTIFF, encoder.NewTIFF())
	reg.RegisterEncoder(core.FormatPPM, encoder.NewPNM())

	vips.Register(reg, vips.BackendConfig{
		DefaultQuality: cfg.DefaultQuality,
		MaxCacheSize:   cfg.Vips.MaxCacheSize,
		MaxWorkers:     cfg.Vips.MaxWorkers,
	})
	return reg
}

// ── Converter ─────────────────────────────────────────────────────────────────

// Viewer displays produced images. display.Viewer satisfies it.
type Viewer interface {
	Show(ctx context.Context, images []*core.ImageData) error
}

// Converter is the primary entry point.
type Converter struct {
	cfg      config.Config
	registry *core.DefaultRegistry
	logger   core.Logger
	metrics  core.MetricsCollector
	hooks    []core.Hook
	storage  core.StorageAdapter
	viewer   Viewer
	tracer   trace.Tracer
	stdin    io.Reader
	stdout   io.Writer
}

// Option configures a Converter.
type Option func(*Converter)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *core.DefaultRegistry) Option { return func(c *Converter) { c.registry = r } }

func WithLogger(l core.Logger) Option { return func(c *Converter) { c.logger = l } }

func WithMetrics(m core.MetricsCollector) Option { return func(c *Converter) { c.metrics = m } }

// WithHooks adds observers to every pipeline.
func WithHooks(h ...core.Hook) Option {
	return func(c *Converter) { c.hooks = append(c.hooks, h...) }
}

// WithStorage sets the adapter for s3:// outputs, overriding cfg.S3.
func WithStorage(s core.StorageAdapter) Option { return func(c *Converter) { c.storage = s } }

func WithViewer(v Viewer) Option { return func(c *Converter) { c.viewer = v } }

// WithStdio replaces os.Stdin and os.Stdout.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(c *Converter) { c.stdin, c.stdout = in, out }
}

// New validates cfg and returns a Converter.
func New(cfg config.Config, opts ...Option) (*Converter, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.New(apperrors.CategoryConfig, "new", err)
	}
	c := &Converter{
		cfg:    cfg,
		logger: core.NopLogger{},
		tracer: otel.Tracer(hooks.TracerName),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	if c.viewer == nil {
		c.viewer = display.NewViewer(nil, "", c.logger)
	}
	if c.storage == nil && cfg.S3.Endpoint != "" {
		s3, err := storage.NewMinio(storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
			Bucket:          cfg.S3.Bucket,
		})
		if err != nil {
			return nil, err
		}
		c.storage = s3
	}
	return c, nil
}

// Registry returns the registry the converter resolves formats with.
func (c *Converter) Registry() *core.DefaultRegistry { return c.registry }

// Request describes one run.
type Request struct {
	// Inputs are file paths or StdinSelector.
	Inputs []string
	// Outputs are file paths, s3://bucket/key selectors or "-" for stdout.
	Outputs []string
	// OutputFormat is required for "-" outputs.
	OutputFormat string
	// Args selects the operation chain, in command-line order.
	Args operations.Args
	// View opens every produced image in the default viewer.
	View bool
	// Probe prints an ImageInfo per input as JSON and skips everything else.
	Probe bool
}

// ImageInfo describes one decoded frame.
type ImageInfo struct {
	Input      string          `json:"input"`
	Format     core.Format     `json:"format"`
	Frame      int             `json:"frame"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	ColorSpace core.ColorSpace `json:"colorspace"`
	Depth      int             `json:"depth"`
	HasAlpha   bool            `json:"has_alpha"`
	SizeBytes  int64           `json:"size_bytes"`
}

// SourceResult is the outcome of one input.
type SourceResult struct {
	Input  string
	Format core.Format
	Frames int
	// Report is empty for probe runs and failed sources.
	Report pipeline.Report
	Info   []ImageInfo
	Err    error
}

// RunResult is the outcome of Run.
type RunResult struct {
	RunID   string
	Sources []SourceResult
}

// Run processes every input in order. A failing source stops the run unless
// cfg.ContinueOnError is set, in which case the returned error joins every
// source failure. Target failures never fail the run; they are reported in
// each SourceResult.
func (c *Converter) Run(ctx context.Context, req Request) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString()}
	log := &runLogger{next: c.logger, fields: []interface{}{"run", res.RunID}}
	log.Info("run.start", "inputs", len(req.Inputs), "outputs", len(req.Outputs))

	targets := c.targets(req)
	dispatcher := pipeline.NewDispatcher(c.registry, storage.NewLocal(0, c.cfg.MakeDirs), c.stdout).
		WithEncodeOptions(core.EncodeOptions{Quality: c.cfg.DefaultQuality, Lossless: c.cfg.Lossless}).
		WithLogger(log).
		WithMetrics(c.metrics).
		WithRetry(c.cfg.MaxRetries, c.cfg.RetryDelay)
	if c.storage != nil {
		dispatcher.WithStorage(c.storage)
	}

	var errs []error
	for _, input := range req.Inputs {
		sr := c.runSource(ctx, log, input, req, dispatcher, targets)
		res.Sources = append(res.Sources, sr)
		if sr.Err == nil {
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordError("source", string(category(sr.Err)))
		}
		err := fmt.Errorf("%s: %w", input, sr.Err)
		if !c.cfg.ContinueOnError {
			log.Error("run.abort", "input", input, "error", sr.Err)
			return res, err
		}
		log.Warn("source.skipped", "input", input, "error", sr.Err)
		errs = append(errs, err)
	}
	log.Info("run.done", "sources", len(res.Sources), "failed", len(errs))
	return res, errors.Join(errs...)
}

func (c *Converter) targets(req Request) []pipeline.Target {
	var explicit core.Format
	if req.OutputFormat != "" {
		f, ok := c.registry.FormatByName(req.OutputFormat)
		if !ok {
			// Left unresolved so the stream target reports it on its own.
			f = core.Format(req.OutputFormat)
		}
		explicit = f
	}
	out := make([]pipeline.Target, 0, len(req.Outputs))
	for _, sel := range req.Outputs {
		out = append(out, pipeline.ParseTarget(sel, explicit))
	}
	return out
}

func (c *Converter) runSource(ctx context.Context, log core.Logger, input string, req Request, d *pipeline.Dispatcher, targets []pipeline.Target) SourceResult {
	ctx, span := c.tracer.Start(ctx, "zune.source", trace.WithAttributes(attribute.String("zune.input", input)))
	defer span.End()

	sr := SourceResult{Input: input}
	fail := func(err error) SourceResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sr.Err = err
		return sr
	}

	handle, err := c.open(ctx, input)
	if err != nil {
		return fail(err)
	}
	sr.Format = handle.Format()
	span.SetAttributes(attribute.String("zune.format", string(sr.Format)))
	log.Debug("source.open", "input", input, "format", sr.Format, "size", handle.Source().Size())

	p := pipeline.New()
	for _, h := range c.pipelineHooks(log) {
		p.AddHook(h)
	}
	if err := p.ChainDecoder(handle); err != nil {
		return fail(err)
	}

	if !req.Probe && req.Args != nil {
		ops, err := operations.NewBuilder(log).Build(req.Args)
		if err != nil {
			return fail(err)
		}
		for _, op := range ops {
			if err := p.AddOperation(op); err != nil {
				return fail(err)
			}
		}
	}

	if err := p.AdvanceToEnd(ctx); err != nil {
		return fail(err)
	}
	images, err := p.Images()
	if err != nil {
		return fail(err)
	}
	sr.Frames = len(images)

	if req.Probe {
		return c.probe(sr, images, handle.Source().Size(), fail)
	}

	sr.Report = d.Dispatch(ctx, images, targets)
	for _, r := range sr.Report.Results {
		if r.Err == nil {
			log.Info("output.written", "input", input, "target", r.Target.String(), "format", r.Format, "bytes", r.Bytes, "elapsed", r.Elapsed)
		}
	}

	if req.View {
		// Display problems are logged by the viewer and never fail the source.
		_ = c.viewer.Show(ctx, images)
	}
	return sr
}

// open resolves input to a decode handle. Standard input is buffered in full
// and sniffed as a whole; files are sniffed from their leading bytes.
func (c *Converter) open(ctx context.Context, input string) (*core.DecodeHandle, error) {
	var (
		src    core.Source
		prefix []byte
	)
	if input == StdinSelector {
		data, err := utils.DrainReader(ctx, c.stdin, c.cfg.ChunkSize, c.cfg.MaxImageBytes)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInput, "stdin", err)
		}
		src = core.NewMemSource(input, data)
		prefix, err = src.Prefix(0)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInput, "stdin", err)
		}
	} else {
		fs, err := core.NewFileSource(input)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInput, "open", err)
		}
		src = fs
		if prefix, err = fs.Prefix(core.SniffWindow); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInput, "sniff", err)
		}
	}

	m, ok := c.registry.GuessFormat(prefix)
	if !ok {
		return nil, &apperrors.DecoderNotIncludedError{Format: string(core.FormatUnknown)}
	}
	dec, ok := c.registry.DecoderFor(m.Format)
	if !ok {
		return nil, &apperrors.DecoderNotImplementedError{Format: string(m.Format)}
	}
	return core.NewHandle(src, m.Format, dec, core.DecodeOptions{
		MaxWidth:  c.cfg.MaxWidth,
		MaxHeight: c.cfg.MaxHeight,
		Strict:    c.cfg.Strict,
	}), nil
}

func (c *Converter) pipelineHooks(log core.Logger) []core.Hook {
	hs := []core.Hook{hooks.NewLoggingHook(log), hooks.NewTracingHook(c.tracer)}
	if c.metrics != nil {
		hs = append(hs, hooks.NewMetricsHook(c.metrics))
	}
	return append(hs, c.hooks...)
}

func (c *Converter) probe(sr SourceResult, images []*core.ImageData, size int64, fail func(error) SourceResult) SourceResult {
	enc := json.NewEncoder(c.stdout)
	for _, img := range images {
		info := ImageInfo{
			Input:      sr.Input,
			Format:     img.Format,
			Frame:      img.Meta.Frame,
			Width:      img.Meta.Width,
			Height:     img.Meta.Height,
			ColorSpace: img.Meta.ColorSpace,
			Depth:      img.Meta.Depth,
			HasAlpha:   img.Meta.HasAlpha,
			SizeBytes:  size,
		}
		sr.Info = append(sr.Info, info)
		if err := enc.Encode(info); err != nil {
			return fail(apperrors.Wrap(apperrors.CategoryTarget, "probe", err))
		}
	}
	return sr
}

func category(err error) apperrors.Category {
	var (
		pe   *apperrors.ProcessingError
		nimp *apperrors.DecoderNotImplementedError
		ninc *apperrors.DecoderNotIncludedError
	)
	switch {
	case errors.As(err, &pe):
		return pe.Category
	case errors.As(err, &nimp), errors.As(err, &ninc):
		return apperrors.CategoryDecode
	case apperrors.IsCategory(err, apperrors.CategoryParam):
		return apperrors.CategoryParam
	}
	return apperrors.CategoryPipeline
}

// runLogger tags every record with the run id.
type runLogger struct {
	next   core.Logger
	fields []interface{}
}

func (l *runLogger) with(fields []interface{}) []interface{} {
	out := make([]interface{}, 0, len(l.fields)+len(fields))
	return append(append(out, l.fields...), fields...)
}

func (l *runLogger) Debug(msg string, f ...interface{}) { l.next.Debug(msg, l.with(f)...) }
func (l *runLogger) Info(msg string, f ...interface{})  { l.next.Info(msg, l.with(f)...) }
func (l *runLogger) Warn(msg string, f ...interface{})  { l.next.Warn(msg, l.with(f)...) }
func (l *runLogger) Error(msg string, f ...interface{}) { l.next.Error(msg, l.with(f)...) }
