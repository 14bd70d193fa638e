package operations

import (
	"context"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/Erithax/zune-image/core"
)

// ── Blur / sharpen ────────────────────────────────────────────────────────────

type BoxBlur struct {
	Radius int
}

func (BoxBlur) Name() string { return "box-blur" }

func (o BoxBlur) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if o.Radius == 0 {
		return img, nil
	}
	return output(img, blur.Box(src, float64(o.Radius))), nil
}

// GaussianBlur blurs with a gaussian kernel of standard deviation Sigma.
type GaussianBlur struct {
	Sigma float32
}

func (GaussianBlur) Name() string { return "blur" }

func (o GaussianBlur) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, imaging.Blur(src, float64(o.Sigma))), nil
}

type Sharpen struct {
	Sigma float32
}

func (Sharpen) Name() string { return "sharpen" }

func (o Sharpen) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, imaging.Sharpen(src, float64(o.Sigma))), nil
}

// ── Edge filters ──────────────────────────────────────────────────────────────

type Sobel struct{}

func (Sobel) Name() string { return "sobel" }

func (o Sobel) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, effect.Sobel(src)), nil
}

type Emboss struct{}

func (Emboss) Name() string { return "emboss" }

func (o Emboss) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, effect.Emboss(src)), nil
}

// Edges highlights edges using a Laplacian-style kernel of the given radius.
type Edges struct {
	Radius float32
}

func (Edges) Name() string { return "edges" }

func (o Edges) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, effect.EdgeDetection(src, float64(o.Radius))), nil
}
