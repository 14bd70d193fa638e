package operations

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

func names(ops []core.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Name()
	}
	return out
}

func TestBuild_PreservesCommandLineOrder(t *testing.T) {
	args := List{
		{ID: "in", Values: []string{"a.ppm"}},
		{ID: "resize", Values: []string{"100", "50"}},
		{ID: "grayscale"},
		{ID: "out", Values: []string{"b.png"}},
		{ID: "flip"},
	}
	ops, err := Build(args)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := strings.Join(names(ops), ",")
	if got != "resize,grayscale,flip" {
		t.Errorf("order: got %s", got)
	}
	if r := ops[0].(Resize); r.Width != 100 || r.Height != 50 || r.Method != ResizeBilinear {
		t.Errorf("resize params: %+v", r)
	}
}

func TestBuild_SkipsGroupsDefaultsAndUnknown(t *testing.T) {
	args := List{
		{ID: "operations", Group: true},
		{ID: "median", Values: []string{"3"}, Default: true},
		{ID: "no-such-operation", Values: []string{"x"}},
		{ID: "view"},
		{ID: "invert"},
	}
	ops, err := Build(args)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := strings.Join(names(ops), ","); got != "invert" {
		t.Errorf("got %s, want invert", got)
	}
}

func TestBuild_FiltersAfterTransforms(t *testing.T) {
	ops, err := Build(List{
		{ID: "box-blur", Values: []string{"2"}},
		{ID: "sobel"},
		{ID: "stretch_contrast", Values: []string{"10", "200"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := strings.Join(names(ops), ","); got != "box-blur,sobel,stretch_contrast" {
		t.Errorf("got %s", got)
	}
}

func TestBuild_Mirror(t *testing.T) {
	ops, err := Build(List{{ID: "mirror", Values: []string{"north"}}})
	if err != nil {
		t.Fatalf("mirror north: %v", err)
	}
	if m, ok := ops[0].(Mirror); !ok || m.Mode != MirrorNorth {
		t.Errorf("got %#v, want Mirror{North}", ops[0])
	}

	for _, bad := range []string{"up", "North", "NORTH"} {
		_, err := Build(List{{ID: "mirror", Values: []string{bad}}})
		var pe *apperrors.ParamError
		if !errors.As(err, &pe) {
			t.Fatalf("mirror %s: got %v, want ParamError", bad, err)
		}
		if !strings.Contains(err.Error(), bad) {
			t.Errorf("error %q should name %q", err, bad)
		}
	}
}

func TestBuild_Depth(t *testing.T) {
	for _, ok := range []string{"8", "16"} {
		if _, err := Build(List{{ID: "depth", Values: []string{ok}}}); err != nil {
			t.Errorf("depth %s: %v", ok, err)
		}
	}
	_, err := Build(List{{ID: "depth", Values: []string{"12"}}})
	if err == nil {
		t.Fatal("depth 12 should fail")
	}
	for _, want := range []string{"12", "8", "16"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
	if !apperrors.IsCategory(err, apperrors.CategoryParam) {
		t.Error("depth error should be a parameter error")
	}
	if _, err := Build(List{{ID: "depth", Values: []string{"300"}}}); err == nil {
		t.Error("depth 300 does not fit in a u8 and should fail")
	}
}

func TestBuild_Statistic(t *testing.T) {
	ops, err := Build(List{{ID: "statistic", Values: []string{"2", "maximum"}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s := ops[0].(Statistic); s.Radius != 2 || s.Mode != StatisticMax {
		t.Errorf("got %+v", s)
	}

	_, err = Build(List{{ID: "statistic", Values: []string{"two", "mean"}}})
	var num *strconv.NumError
	if !errors.As(err, &num) {
		t.Errorf("bad radius should surface the parse error, got %v", err)
	}

	_, err = Build(List{{ID: "statistic", Values: []string{"2", "mode"}}})
	if err == nil || !strings.Contains(err.Error(), "mode") {
		t.Errorf("bad mode: got %v", err)
	}
}

func TestBuild_ParameterContracts(t *testing.T) {
	cases := []struct {
		arg  Arg
		want core.Operation
	}{
		{Arg{ID: "crop", Values: []string{"10", "20", "3", "4"}}, Crop{Width: 10, Height: 20, X: 3, Y: 4}},
		{Arg{ID: "threshold", Values: []string{"128", "binary_inv"}}, Threshold{Value: 128, Mode: ThresholdBinaryInv}},
		{Arg{ID: "stretch_contrast", Values: []string{"5", "250"}}, StretchContrast{Lower: 5, Upper: 250}},
		{Arg{ID: "exposure", Values: []string{"1.5"}}, Exposure{Exposure: 1.5, Black: 0}},
		{Arg{ID: "median", Values: []string{"3"}}, Median{Radius: 3}},
		{Arg{ID: "colorspace", Values: []string{"hsv"}}, ColorSpaceConv{Target: core.ColorSpaceHSV}},
		{Arg{ID: "gamma", Values: []string{"2.2"}}, Gamma{Value: 2.2}},
		{Arg{ID: "brighten", Values: []string{"-0.25"}}, Brighten{Value: -0.25}},
		{Arg{ID: "edges", Values: []string{"1"}}, Edges{Radius: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.arg.ID, func(t *testing.T) {
			ops, err := Build(List{tc.arg})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if len(ops) != 1 || ops[0] != tc.want {
				t.Errorf("got %#v, want %#v", ops, tc.want)
			}
		})
	}
}

func TestBuild_MalformedParameters(t *testing.T) {
	cases := []struct {
		arg     Arg
		literal string
	}{
		{Arg{ID: "median", Values: []string{"-1"}}, "-1"},
		{Arg{ID: "crop", Values: []string{"10", "20", "x", "4"}}, "x"},
		{Arg{ID: "crop", Values: []string{"10", "20"}}, "10,20"},
		{Arg{ID: "threshold", Values: []string{"70000", "binary"}}, "70000"},
		{Arg{ID: "threshold", Values: []string{"10", "otsu"}}, "otsu"},
		{Arg{ID: "resize", Values: []string{"0", "0"}}, "0,0"},
		{Arg{ID: "gamma", Values: []string{"0"}}, "0"},
		{Arg{ID: "stretch_contrast", Values: []string{"200", "100"}}, "200,100"},
		{Arg{ID: "colorspace", Values: []string{"lab"}}, "lab"},
		{Arg{ID: "brighten", Values: []string{"bright"}}, "bright"},
	}
	for _, tc := range cases {
		t.Run(tc.arg.ID+"/"+tc.literal, func(t *testing.T) {
			_, err := Build(List{tc.arg})
			var pe *apperrors.ParamError
			if !errors.As(err, &pe) {
				t.Fatalf("got %v, want ParamError", err)
			}
			if !strings.Contains(err.Error(), tc.literal) {
				t.Errorf("error %q should echo %q", err, tc.literal)
			}
		})
	}
}

func TestBuild_FirstErrorAborts(t *testing.T) {
	ops, err := Build(List{
		{ID: "flip"},
		{ID: "mirror", Values: []string{"up"}},
		{ID: "flop"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if ops != nil {
		t.Errorf("no operations should be returned on error, got %v", names(ops))
	}
}
