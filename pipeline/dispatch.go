package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
	"github.com/Erithax/zune-image/utils"
)

// ── Targets ───────────────────────────────────────────────────────────────────

// TargetKind tells the dispatcher where encoded bytes go.
type TargetKind int

const (
	TargetFile TargetKind = iota
	TargetStream
	TargetObject
)

// StreamSelector is the output selector for standard output.
const StreamSelector = "-"

const objectScheme = "s3://"

// Target is one requested encode destination.
type Target struct {
	Kind TargetKind
	// Path is the file path, or the object key for TargetObject.
	Path   string
	Bucket string
	// Format is the explicitly requested format, empty when none was given.
	Format core.Format
}

// ParseTarget classifies an output selector. explicit is the format the user
// asked for, or empty.
func ParseTarget(selector string, explicit core.Format) Target {
	switch {
	case selector == StreamSelector:
		return Target{Kind: TargetStream, Path: selector, Format: explicit}
	case strings.HasPrefix(selector, objectScheme):
		rest := strings.TrimPrefix(selector, objectScheme)
		bucket, key, _ := strings.Cut(rest, "/")
		return Target{Kind: TargetObject, Bucket: bucket, Path: key, Format: explicit}
	}
	return Target{Kind: TargetFile, Path: selector, Format: explicit}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetStream:
		return StreamSelector
	case TargetObject:
		return objectScheme + t.Bucket + "/" + t.Path
	}
	return t.Path
}

// ── Report ────────────────────────────────────────────────────────────────────

// TargetResult is the outcome of one target.
type TargetResult struct {
	Target  Target
	Format  core.Format
	Written []string
	Bytes   int64
	Elapsed time.Duration
	Err     error
}

// Report collects every target outcome of one dispatch, in target order.
type Report struct {
	Results []TargetResult
}

// Failed returns the results that carry an error.
func (r Report) Failed() []TargetResult {
	var out []TargetResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every target error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// ── Dispatcher ────────────────────────────────────────────────────────────────

// FileSink opens fresh output files. storage.Local satisfies it.
type FileSink interface {
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// Dispatcher encodes an image set to every requested target. A failing
// target never prevents the others from being written.
type Dispatcher struct {
	registry   core.Registry
	files      FileSink
	stdout     io.Writer
	objects    core.StorageAdapter
	opts       core.EncodeOptions
	logger     core.Logger
	metrics    core.MetricsCollector
	maxRetries int
	retryDelay time.Duration
}

// NewDispatcher returns a Dispatcher writing files through files and stream
// targets to stdout.
func NewDispatcher(reg core.Registry, files FileSink, stdout io.Writer) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		files:    files,
		stdout:   stdout,
		logger:   core.NopLogger{},
	}
}

// WithStorage enables s3:// targets.
func (d *Dispatcher) WithStorage(s core.StorageAdapter) *Dispatcher {
	d.objects = s
	return d
}

func (d *Dispatcher) WithEncodeOptions(opts core.EncodeOptions) *Dispatcher {
	d.opts = opts
	return d
}

func (d *Dispatcher) WithLogger(l core.Logger) *Dispatcher {
	if l != nil {
		d.logger = l
	}
	return d
}

func (d *Dispatcher) WithMetrics(m core.MetricsCollector) *Dispatcher {
	d.metrics = m
	return d
}

// WithRetry sets the maximum retry count and delay for transient upload
// failures.
func (d *Dispatcher) WithRetry(maxRetries int, delay time.Duration) *Dispatcher {
	d.maxRetries = maxRetries
	d.retryDelay = delay
	return d
}

// Dispatch writes images to every target in order and reports each outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, images []*core.ImageData, targets []Target) Report {
	report := Report{Results: make([]TargetResult, 0, len(targets))}
	for _, t := range targets {
		start := time.Now()
		var res TargetResult
		switch t.Kind {
		case TargetStream:
			res = d.toStream(ctx, images, t)
		case TargetObject:
			res = d.toObjects(ctx, images, t)
		default:
			res = d.toFiles(ctx, images, t)
		}
		res.Target = t
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			res.Err = &apperrors.TargetError{Target: t.String(), Err: res.Err}
			d.logger.Error("target.failed", "target", t.String(), "error", res.Err)
			if d.metrics != nil {
				d.metrics.RecordError("encode:"+t.String(), string(categoryOf(res.Err)))
			}
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func (d *Dispatcher) encoder(f core.Format) (core.Encoder, error) {
	enc, ok := d.registry.EncoderFor(f)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryEncode, "dispatch", fmt.Errorf("%w: %s", apperrors.ErrNoEncoder, f))
	}
	return enc, nil
}

// resolve picks the format for a file or object target from the path
// extension. Object keys without an extension fall back to the explicit
// format.
func (d *Dispatcher) resolve(t Target) (core.Format, error) {
	ext := utils.Extension(t.Path)
	if ext == "" {
		if t.Kind == TargetObject && t.Format != "" {
			return t.Format, nil
		}
		return "", apperrors.New(apperrors.CategoryEncode, "dispatch", fmt.Errorf("%w for %s", apperrors.ErrNoExtension, t.Path))
	}
	f, ok := d.registry.EncoderForExtension(ext)
	if !ok {
		return "", apperrors.New(apperrors.CategoryEncode, "dispatch", fmt.Errorf("%w: %q", apperrors.ErrUnknownExtension, ext))
	}
	return f, nil
}

func (d *Dispatcher) toStream(ctx context.Context, images []*core.ImageData, t Target) TargetResult {
	res := TargetResult{Format: t.Format}
	if t.Format == "" {
		res.Err = apperrors.ErrStreamFormatRequired
		return res
	}
	enc, err := d.encoder(t.Format)
	if err != nil {
		res.Err = err
		return res
	}
	for _, img := range images {
		n, err := d.encode(ctx, enc, img, t.Format, d.stdout)
		res.Bytes += n
		if err != nil {
			res.Err = err
			return res
		}
		res.Written = append(res.Written, StreamSelector)
	}
	return res
}

func (d *Dispatcher) toFiles(ctx context.Context, images []*core.ImageData, t Target) TargetResult {
	var res TargetResult
	f, err := d.resolve(t)
	if err != nil {
		res.Err = err
		return res
	}
	res.Format = f
	enc, err := d.encoder(f)
	if err != nil {
		res.Err = err
		return res
	}

	var errs []error
	for i, img := range images {
		path := utils.FramePath(t.Path, i, len(images))
		n, err := d.writeFile(ctx, enc, img, f, path)
		res.Bytes += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		res.Written = append(res.Written, path)
	}
	res.Err = errors.Join(errs...)
	return res
}

func (d *Dispatcher) writeFile(ctx context.Context, enc core.Encoder, img *core.ImageData, f core.Format, path string) (int64, error) {
	w, err := d.files.Create(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := d.encode(ctx, enc, img, f, w)
	if cerr := w.Close(); err == nil && cerr != nil {
		err = apperrors.Wrap(apperrors.CategoryStorage, "close", cerr)
	}
	return n, err
}

func (d *Dispatcher) toObjects(ctx context.Context, images []*core.ImageData, t Target) TargetResult {
	var res TargetResult
	if d.objects == nil {
		res.Err = apperrors.New(apperrors.CategoryStorage, "dispatch", apperrors.ErrStorageUnavailable)
		return res
	}
	f, err := d.resolve(t)
	if err != nil {
		res.Err = err
		return res
	}
	res.Format = f
	enc, err := d.encoder(f)
	if err != nil {
		res.Err = err
		return res
	}

	var errs []error
	for i, img := range images {
		key := core.StorageKey{Bucket: t.Bucket, Path: utils.FramePath(t.Path, i, len(images))}
		n, err := d.upload(ctx, enc, img, f, key)
		res.Bytes += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key.Path, err))
			continue
		}
		res.Written = append(res.Written, objectScheme+key.Bucket+"/"+key.Path)
	}
	res.Err = errors.Join(errs...)
	return res
}

func (d *Dispatcher) upload(ctx context.Context, enc core.Encoder, img *core.ImageData, f core.Format, key core.StorageKey) (int64, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)

	n, err := d.encode(ctx, enc, img, f, buf)
	if err != nil {
		return n, err
	}
	meta := map[string]string{"Content-Type": ContentType(f)}
	body := buf.Bytes()

	attempts := d.maxRetries + 1
	for i := 0; i < attempts; i++ {
		err = d.objects.Put(ctx, key, bytes.NewReader(body), int64(len(body)), meta)
		if err == nil || !apperrors.IsRetryable(err) || i == attempts-1 {
			break
		}
		d.logger.Warn("object.retry", "key", key.Path, "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return n, apperrors.Wrap(apperrors.CategoryStorage, "upload", ctx.Err())
		case <-time.After(d.retryDelay):
		}
	}
	return n, err
}

// encode writes one frame and records its timing.
func (d *Dispatcher) encode(ctx context.Context, enc core.Encoder, img *core.ImageData, f core.Format, w io.Writer) (int64, error) {
	start := time.Now()
	n, err := enc.Encode(ctx, img, d.opts, w)
	elapsed := time.Since(start)
	if err != nil {
		return n, err
	}
	d.logger.Debug("encode.done", "format", f, "bytes", n, "elapsed", elapsed)
	if d.metrics != nil {
		d.metrics.RecordProcessingTime("encode:"+string(f), elapsed)
		d.metrics.RecordThroughput(n)
	}
	return n, nil
}

// ContentType returns the MIME type used for uploaded objects.
func ContentType(f core.Format) string {
	switch f {
	case core.FormatJPEG:
		return "image/jpeg"
	case core.FormatPPM:
		return "image/x-portable-anymap"
	case core.FormatUnknown, "":
		return "application/octet-stream"
	}
	return "image/" + string(f)
}

func categoryOf(err error) apperrors.Category {
	var pe *apperrors.ProcessingError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return apperrors.CategoryTarget
}
