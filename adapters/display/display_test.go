package display

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/Erithax/zune-image/core"
)

func TestViewer_OpensEveryFrame(t *testing.T) {
	var opened []string
	run := func(path string) error {
		opened = append(opened, path)
		return nil
	}
	v := NewViewer(run, t.TempDir(), nil)
	imgs := []*core.ImageData{
		{Image: image.NewGray(image.Rect(0, 0, 3, 3))},
		{Image: image.NewGray(image.Rect(0, 0, 2, 2))},
	}
	if err := v.Show(context.Background(), imgs); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if len(opened) != 2 {
		t.Fatalf("opened %d files, want 2", len(opened))
	}
	f, err := os.Open(opened[1])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatalf("temp file is not a png: %v", err)
	}
	if got.Bounds().Dx() != 2 {
		t.Errorf("wrong frame written: %v", got.Bounds())
	}
}

func TestViewer_ReportsOpenerFailure(t *testing.T) {
	run := func(string) error { return errors.New("no display") }
	v := NewViewer(run, t.TempDir(), nil)
	err := v.Show(context.Background(), []*core.ImageData{{Image: image.NewGray(image.Rect(0, 0, 1, 1))}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestViewer_StopsOnCancel(t *testing.T) {
	calls := 0
	v := NewViewer(func(string) error { calls++; return nil }, t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := v.Show(ctx, []*core.ImageData{{Image: image.NewGray(image.Rect(0, 0, 1, 1))}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("viewer ran %d times after cancel", calls)
	}
}
