package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level configuration struct. All fields have safe
// defaults so callers can start with Default() and override only what they
// need.
type Config struct {
	// Default encode options applied to every target.
	DefaultQuality int // 1-100; default 85
	Lossless       bool

	// Streaming / memory limits.
	MaxImageBytes int64 // standard input buffer cap; 0 = no limit
	ChunkSize     int   // streaming chunk size in bytes; default 32 KiB
	MaxWidth      int   // 0 = no limit
	MaxHeight     int
	Strict        bool // accept only the common variant of a format family (netpbm: P2/P3/P5/P6)

	// A failing input source stops the run unless this is set.
	ContinueOnError bool

	// Output files.
	MakeDirs bool

	// Object storage for s3:// targets. Disabled when Endpoint is empty.
	S3         S3Config
	MaxRetries int
	RetryDelay time.Duration

	// Optional libvips backend.
	Vips VipsConfig

	// Logging / metrics / tracing.
	LogLevel        string // "debug", "info", "warn", "error"
	LogFormat       string // "text" or "json"
	MetricsTextfile string // node-exporter textfile written after the run
	Trace           TraceConfig
}

// S3Config configures the S3-compatible storage adapter.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string // used when a target names no bucket
}

// VipsConfig tunes libvips when the binary is built with it.
type VipsConfig struct {
	MaxCacheSize int
	MaxWorkers   int // 0 = NumCPU
}

// TraceConfig selects the span exporter.
type TraceConfig struct {
	Exporter    string // none, stdout or otlp
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		DefaultQuality: 85,
		MaxImageBytes:  512 << 20,
		ChunkSize:      32 * 1024,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
		Vips:           VipsConfig{MaxCacheSize: 100},
		LogLevel:       "warn",
		LogFormat:      "text",
		Trace: TraceConfig{
			Exporter:    "none",
			ServiceName: "zune",
		},
	}
}

// Load returns Default() overridden by ZUNE_* environment variables.
func Load() Config {
	d := Default()
	return Config{
		DefaultQuality:  envInt("ZUNE_QUALITY", d.DefaultQuality),
		Lossless:        envBool("ZUNE_LOSSLESS", d.Lossless),
		MaxImageBytes:   int64(envInt("ZUNE_MAX_IMAGE_BYTES", int(d.MaxImageBytes))),
		ChunkSize:       envInt("ZUNE_CHUNK_SIZE", d.ChunkSize),
		MaxWidth:        envInt("ZUNE_MAX_WIDTH", d.MaxWidth),
		MaxHeight:       envInt("ZUNE_MAX_HEIGHT", d.MaxHeight),
		Strict:          envBool("ZUNE_STRICT", d.Strict),
		ContinueOnError: envBool("ZUNE_KEEP_GOING", d.ContinueOnError),
		MakeDirs:        envBool("ZUNE_MAKE_DIRS", d.MakeDirs),
		S3: S3Config{
			Endpoint:        env("ZUNE_S3_ENDPOINT", ""),
			Region:          env("ZUNE_S3_REGION", ""),
			AccessKeyID:     env("ZUNE_S3_ACCESS_KEY", ""),
			SecretAccessKey: env("ZUNE_S3_SECRET_KEY", ""),
			UseSSL:          envBool("ZUNE_S3_USE_SSL", true),
			Bucket:          env("ZUNE_S3_BUCKET", ""),
		},
		MaxRetries: envInt("ZUNE_MAX_RETRIES", d.MaxRetries),
		RetryDelay: envDuration("ZUNE_RETRY_DELAY", d.RetryDelay),
		Vips: VipsConfig{
			MaxCacheSize: envInt("ZUNE_VIPS_CACHE", d.Vips.MaxCacheSize),
			MaxWorkers:   envInt("ZUNE_VIPS_WORKERS", d.Vips.MaxWorkers),
		},
		LogLevel:        env("ZUNE_LOG_LEVEL", d.LogLevel),
		LogFormat:       env("ZUNE_LOG_FORMAT", d.LogFormat),
		MetricsTextfile: env("ZUNE_METRICS_TEXTFILE", ""),
		Trace: TraceConfig{
			Exporter:    env("ZUNE_TRACE_EXPORTER", d.Trace.Exporter),
			Endpoint:    env("ZUNE_TRACE_ENDPOINT", ""),
			Insecure:    envBool("ZUNE_TRACE_INSECURE", false),
			ServiceName: env("ZUNE_SERVICE_NAME", d.Trace.ServiceName),
		},
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.MaxImageBytes < 0 || c.MaxWidth < 0 || c.MaxHeight < 0 {
		return errors.New("config: size limits cannot be negative")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: MaxRetries cannot be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown LogLevel %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown LogFormat %q", c.LogFormat)
	}
	switch strings.ToLower(c.Trace.Exporter) {
	case "", "none", "stdout":
	case "otlp":
		if c.Trace.Endpoint == "" {
			return errors.New("config: otlp tracing requires Trace.Endpoint")
		}
	default:
		return fmt.Errorf("config: unknown trace exporter %q", c.Trace.Exporter)
	}
	return nil
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
