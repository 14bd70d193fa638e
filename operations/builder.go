package operations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// Args is a validated argument lookup. IDs must be returned in the order the
// user supplied them on the command line.
type Args interface {
	IDs() []string
	// IsSet reports whether id was given explicitly rather than defaulted.
	IsSet(id string) bool
	// IsGroup reports whether id names an argument group instead of a value.
	IsGroup(id string) bool
	Values(id string) []string
}

// Arg is one entry of a List.
type Arg struct {
	ID      string
	Values  []string
	Group   bool
	Default bool
}

// List is an in-memory Args preserving slice order.
type List []Arg

func (l List) find(id string) (Arg, bool) {
	for _, a := range l {
		if a.ID == id {
			return a, true
		}
	}
	return Arg{}, false
}

func (l List) IDs() []string {
	ids := make([]string, 0, len(l))
	seen := make(map[string]bool, len(l))
	for _, a := range l {
		if !seen[a.ID] {
			seen[a.ID] = true
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (l List) IsSet(id string) bool {
	a, ok := l.find(id)
	return ok && !a.Default
}

func (l List) IsGroup(id string) bool {
	a, ok := l.find(id)
	return ok && a.Group
}

func (l List) Values(id string) []string {
	a, _ := l.find(id)
	return a.Values
}

type resolver func(id string, vals []string) (core.Operation, error)

// Named transforms are consulted before filters.
var (
	transforms = map[string]resolver{
		"flip":             noArgs(Flip{}),
		"flop":             noArgs(Flop{}),
		"transpose":        noArgs(Transpose{}),
		"grayscale":        noArgs(Grayscale{}),
		"invert":           noArgs(Invert{}),
		"auto-orient":      noArgs(AutoOrient{}),
		"h-flip":           noArgs(HFlip{}),
		"mirror":           resolveMirror,
		"median":           resolveMedian,
		"statistic":        resolveStatistic,
		"brighten":         resolveBrighten,
		"crop":             resolveCrop,
		"threshold":        resolveThreshold,
		"stretch-contrast": resolveStretchContrast,
		"gamma":            resolveGamma,
		"contrast":         resolveContrast,
		"resize":           resolveResize,
		"depth":            resolveDepth,
		"colorspace":       resolveColorSpace,
		"exposure":         resolveExposure,
	}
	filters = map[string]resolver{
		"box-blur": resolveBoxBlur,
		"blur":     resolveBlur,
		"sharpen":  resolveSharpen,
		"sobel":    noArgs(Sobel{}),
		"emboss":   noArgs(Emboss{}),
		"edges":    resolveEdges,
	}
)

// Builder turns an argument lookup into an ordered operation chain.
type Builder struct {
	logger core.Logger
}

func NewBuilder(logger core.Logger) *Builder {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Builder{logger: logger}
}

// Build resolves every explicitly set identifier of args, in order. Groups,
// defaulted identifiers and identifiers that name no operation are skipped.
// The first malformed parameter aborts the build.
func (b *Builder) Build(args Args) ([]core.Operation, error) {
	var ops []core.Operation
	for _, id := range args.IDs() {
		if args.IsGroup(id) || !args.IsSet(id) {
			continue
		}
		key := normalise(id)
		r, ok := transforms[key]
		if !ok {
			r, ok = filters[key]
		}
		if !ok {
			continue
		}
		op, err := r(key, args.Values(id))
		if err != nil {
			return nil, err
		}
		b.logger.Debug("operation.added", "op", op.Name(), "params", fmt.Sprintf("%+v", op))
		ops = append(ops, op)
	}
	return ops, nil
}

// Build uses a Builder without logging.
func Build(args Args) ([]core.Operation, error) {
	return NewBuilder(nil).Build(args)
}

// Names lists every identifier Build recognises.
func Names() []string {
	names := make([]string, 0, len(transforms)+len(filters))
	for k := range transforms {
		names = append(names, k)
	}
	for k := range filters {
		names = append(names, k)
	}
	return names
}

func normalise(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "_", "-")
}

// ── Resolvers ─────────────────────────────────────────────────────────────────

func noArgs(op core.Operation) resolver {
	return func(string, []string) (core.Operation, error) { return op, nil }
}

func resolveMirror(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 1); err != nil {
		return nil, err
	}
	v := strings.TrimSpace(vals[0])
	var mode MirrorMode
	switch v {
	case "north":
		mode = MirrorNorth
	case "south":
		mode = MirrorSouth
	case "east":
		mode = MirrorEast
	case "west":
		mode = MirrorWest
	default:
		return nil, &apperrors.ParamError{Op: id, Value: v, Reason: "unknown mirror mode, expected one of north, south, east, west"}
	}
	return Mirror{Mode: mode}, nil
}

func resolveMedian(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 1); err != nil {
		return nil, err
	}
	r, err := parseUint(id, vals[0], strconv.IntSize)
	if err != nil {
		return nil, err
	}
	return Median{Radius: int(r)}, nil
}

func resolveStatistic(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 2); err != nil {
		return nil, err
	}
	r, err := parseUint(id, vals[0], strconv.IntSize)
	if err != nil {
		return nil, err
	}
	mode, err := ParseStatisticMode(strings.TrimSpace(vals[1]))
	if err != nil {
		return nil, &apperrors.ParamError{Op: id, Value: vals[1], Err: err}
	}
	return Statistic{Radius: int(r), Mode: mode}, nil
}

func resolveBrighten(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	return Brighten{Value: v}, nil
}

func resolveCrop(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 4); err != nil {
		return nil, err
	}
	n := make([]int, 4)
	for i, tok := range vals {
		v, err := parseUint(id, tok, strconv.IntSize)
		if err != nil {
			return nil, err
		}
		n[i] = int(v)
	}
	return Crop{Width: n[0], Height: n[1], X: n[2], Y: n[3]}, nil
}

func resolveThreshold(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 2); err != nil {
		return nil, err
	}
	v, err := parseUint(id, vals[0], 16)
	if err != nil {
		return nil, err
	}
	mode, err := ParseThresholdMode(strings.TrimSpace(vals[1]))
	if err != nil {
		return nil, &apperrors.ParamError{Op: id, Value: vals[1], Err: err}
	}
	return Threshold{Value: uint16(v), Mode: mode}, nil
}

func resolveStretchContrast(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 2); err != nil {
		return nil, err
	}
	lo, err := parseUint(id, vals[0], 16)
	if err != nil {
		return nil, err
	}
	hi, err := parseUint(id, vals[1], 16)
	if err != nil {
		return nil, err
	}
	if hi <= lo {
		return nil, &apperrors.ParamError{Op: id, Value: strings.Join(vals, ","), Reason: "upper bound must be greater than lower bound"}
	}
	return StretchContrast{Lower: uint16(lo), Upper: uint16(hi)}, nil
}

func resolveGamma(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	if v <= 0 {
		return nil, &apperrors.ParamError{Op: id, Value: vals[0], Reason: "gamma must be positive"}
	}
	return Gamma{Value: v}, nil
}

func resolveContrast(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	return Contrast{Value: v}, nil
}

func resolveResize(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 2); err != nil {
		return nil, err
	}
	w, err := parseUint(id, vals[0], strconv.IntSize)
	if err != nil {
		return nil, err
	}
	h, err := parseUint(id, vals[1], strconv.IntSize)
	if err != nil {
		return nil, err
	}
	if w == 0 && h == 0 {
		return nil, &apperrors.ParamError{Op: id, Value: strings.Join(vals, ","), Reason: "width and height cannot both be zero"}
	}
	return Resize{Width: int(w), Height: int(h), Method: ResizeBilinear}, nil
}

func resolveDepth(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 1); err != nil {
		return nil, err
	}
	v, err := parseUint(id, vals[0], 8)
	if err != nil {
		return nil, err
	}
	if v != 8 && v != 16 {
		return nil, &apperrors.ParamError{Op: id, Value: strings.TrimSpace(vals[0]), Reason: "unknown depth, supported depths are {8, 16}"}
	}
	return Depth{Bits: int(v)}, nil
}

func resolveColorSpace(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 1); err != nil {
		return nil, err
	}
	cs, err := ParseColorSpace(strings.TrimSpace(vals[0]))
	if err != nil {
		return nil, &apperrors.ParamError{Op: id, Value: vals[0], Err: err}
	}
	return ColorSpaceConv{Target: cs}, nil
}

func resolveExposure(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	return Exposure{Exposure: v, Black: 0}, nil
}

func resolveBoxBlur(id string, vals []string) (core.Operation, error) {
	if err := want(id, vals, 1); err != nil {
		return nil, err
	}
	r, err := parseUint(id, vals[0], strconv.IntSize)
	if err != nil {
		return nil, err
	}
	return BoxBlur{Radius: int(r)}, nil
}

func resolveBlur(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	return GaussianBlur{Sigma: v}, nil
}

func resolveSharpen(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	return Sharpen{Sigma: v}, nil
}

func resolveEdges(id string, vals []string) (core.Operation, error) {
	v, err := oneFloat(id, vals)
	if err != nil {
		return nil, err
	}
	return Edges{Radius: v}, nil
}

// ── Parsing ───────────────────────────────────────────────────────────────────

func want(id string, vals []string, n int) error {
	if len(vals) != n {
		return &apperrors.ParamError{
			Op:     id,
			Value:  strings.Join(vals, ","),
			Reason: fmt.Sprintf("expected %d value(s), got %d", n, len(vals)),
		}
	}
	return nil
}

func parseUint(id, tok string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(tok), 10, bits)
	if err != nil {
		return 0, &apperrors.ParamError{Op: id, Value: tok, Err: err}
	}
	return v, nil
}

func oneFloat(id string, vals []string) (float32, error) {
	if err := want(id, vals, 1); err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(vals[0]), 32)
	if err != nil {
		return 0, &apperrors.ParamError{Op: id, Value: vals[0], Err: err}
	}
	return float32(v), nil
}
