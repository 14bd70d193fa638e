package core

import (
	"context"
	"io"
)

// Decoder converts an encoded byte stream into one or more frames.
// Implementations live in adapters/decoder/.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader, opts DecodeOptions) ([]*ImageData, error)
}

// Encoder serialises a single frame to w and returns the number of bytes
// written. Implementations must treat img as read-only.
// Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, img *ImageData, opts EncodeOptions, w io.Writer) (int64, error)
}

// StorageAdapter persists encoded images to a remote store.
// Implementations live in adapters/storage/.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, size int64, meta map[string]string) error
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordProcessingTime(stepName string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordError(stepName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Decoder/Encoder implementations and
// answers format detection queries.
type Registry interface {
	GuessFormat(prefix []byte) (Match, bool)
	EncoderForExtension(ext string) (Format, bool)
	FormatByName(name string) (Format, bool)
	HasDecoder(format Format) bool
	HasEncoder(format Format) bool
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
