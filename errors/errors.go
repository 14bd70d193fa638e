package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode   Category = "decode"
	CategoryEncode   Category = "encode"
	CategoryPipeline Category = "pipeline"
	CategoryStorage  Category = "storage"
	CategoryConfig   Category = "config"
	CategoryInput    Category = "input"
	CategoryParam    Category = "param"
	CategoryTarget   Category = "target"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category  Category
	Op        string // operation name
	Err       error
	Retryable bool
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a non-retryable ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Transient creates a retryable ProcessingError. Object storage uploads are
// the only producer; local encode failures are never retried.
func Transient(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	var param *ParamError
	if cat == CategoryParam && errors.As(err, &param) {
		return true
	}
	var target *TargetError
	if cat == CategoryTarget && errors.As(err, &target) {
		return true
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat    = errors.New("unsupported image format")
	ErrInvalidDimensions    = errors.New("invalid dimensions")
	ErrEmptyInput           = errors.New("empty input")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidTransition    = errors.New("invalid pipeline transition")
	ErrStreamFormatRequired = errors.New("output format required for stream target")
	ErrNoExtension          = errors.New("could not determine extension")
	ErrUnknownExtension     = errors.New("unknown or unsupported output format")
	ErrNoEncoder            = errors.New("no encoder registered for format")
	ErrImageTooLarge        = errors.New("image dimensions exceed configured limit")
)

// DecoderNotImplementedError reports a format that was recognised by its
// signature but has no decoder in this build.
type DecoderNotImplementedError struct {
	Format string
}

func (e *DecoderNotImplementedError) Error() string {
	return fmt.Sprintf("decoder for format %s is not implemented", e.Format)
}

// DecoderNotIncludedError reports input whose leading bytes match no known
// signature. Format is always "unknown" when produced by the sniffer.
type DecoderNotIncludedError struct {
	Format string
}

func (e *DecoderNotIncludedError) Error() string {
	return fmt.Sprintf("no decoder included for format %s", e.Format)
}

// ParamError is returned by the operation chain builder when an operation's
// arguments cannot be parsed. Value carries the offending literal.
type ParamError struct {
	Op     string
	Value  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	msg := fmt.Sprintf("operation %s: invalid value %q", e.Op, e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParamError) Unwrap() error { return e.Err }

// TargetError is a failure isolated to a single output target.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("output %s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }
