//go:build !govips || !cgo

package vips

import "github.com/Erithax/zune-image/core"

// Available reports whether this build links libvips.
const Available = false

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Register is a no-op without libvips; WebP output and AVIF stay unavailable.
func Register(core.Registry, BackendConfig) {}

func Shutdown() {}
