// Package display opens decoded images in the desktop's default viewer.
package display

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"

	"github.com/skratchdot/open-golang/open"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// Runner hands a file to a viewer without waiting for it to exit.
type Runner func(path string) error

// Viewer writes each image to a temporary PNG and hands it to the platform
// opener.
type Viewer struct {
	run    Runner
	tmpDir string
	logger core.Logger
}

// NewViewer returns a Viewer. A nil run uses open.Start; an empty tmpDir uses
// os.TempDir.
func NewViewer(run Runner, tmpDir string, logger core.Logger) *Viewer {
	if run == nil {
		run = open.Start
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Viewer{run: run, tmpDir: tmpDir, logger: logger}
}

// Show opens every image. Failures are logged and returned joined; they never
// affect outputs already written.
func (v *Viewer) Show(ctx context.Context, images []*core.ImageData) error {
	var errs []error
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			errs = append(errs, apperrors.Wrap(apperrors.CategoryTarget, "display", err))
			break
		}
		path, err := v.writeTemp(img, i)
		if err != nil {
			v.logger.Error("display.write", "frame", i, "error", err)
			errs = append(errs, err)
			continue
		}
		if err := v.run(path); err != nil {
			err = apperrors.Wrap(apperrors.CategoryTarget, "display.open", fmt.Errorf("%s: %w", path, err))
			v.logger.Error("display.open", "path", path, "error", err)
			errs = append(errs, err)
			continue
		}
		v.logger.Debug("display.open", "path", path)
	}
	return errors.Join(errs...)
}

func (v *Viewer) writeTemp(img *core.ImageData, frame int) (string, error) {
	f, err := os.CreateTemp(v.tmpDir, fmt.Sprintf("zune-view-%d-*.png", frame))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CategoryTarget, "display.tmp", err)
	}
	defer f.Close()
	if err := png.Encode(f, img.Image); err != nil {
		return "", apperrors.Wrap(apperrors.CategoryEncode, "display.png", err)
	}
	return f.Name(), nil
}
