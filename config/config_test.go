package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ZUNE_QUALITY", "70")
	t.Setenv("ZUNE_KEEP_GOING", "true")
	t.Setenv("ZUNE_RETRY_DELAY", "1s")
	t.Setenv("ZUNE_S3_ENDPOINT", "localhost:9000")
	t.Setenv("ZUNE_S3_USE_SSL", "false")
	t.Setenv("ZUNE_LOG_FORMAT", "json")
	t.Setenv("ZUNE_CHUNK_SIZE", "not-a-number")

	c := Load()
	if c.DefaultQuality != 70 || !c.ContinueOnError || c.RetryDelay != time.Second {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.S3.Endpoint != "localhost:9000" || c.S3.UseSSL {
		t.Errorf("s3: %+v", c.S3)
	}
	if c.LogFormat != "json" {
		t.Errorf("log format: %s", c.LogFormat)
	}
	if c.ChunkSize != Default().ChunkSize {
		t.Errorf("unparsable value should fall back to the default, got %d", c.ChunkSize)
	}
	if err := Validate(c); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"quality too low", func(c *Config) { c.DefaultQuality = 0 }},
		{"quality too high", func(c *Config) { c.DefaultQuality = 101 }},
		{"chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative limit", func(c *Config) { c.MaxWidth = -1 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"otlp without endpoint", func(c *Config) { c.Trace.Exporter = "otlp" }},
		{"unknown exporter", func(c *Config) { c.Trace.Exporter = "zipkin" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mod(&c)
			if err := Validate(c); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
