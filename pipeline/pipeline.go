// Package pipeline holds the per-source state machine that decodes an input,
// runs the operation chain over every frame, and hands the result to the
// encoder dispatch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// State is a pipeline lifecycle stage. Transitions only move forward.
type State int

const (
	StateEmpty State = iota
	StateDecoderChained
	StateOperationsAppended
	StateAdvanced
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDecoderChained:
		return "decoder-chained"
	case StateOperationsAppended:
		return "operations-appended"
	case StateAdvanced:
		return "advanced"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Source is what a pipeline decodes from.
type Source interface {
	Decode(ctx context.Context) ([]*core.ImageData, error)
	Format() core.Format
}

// Timing records how long one step took.
type Timing struct {
	Step     string
	Duration time.Duration
}

// Pipeline decodes one source and applies an ordered chain of operations to
// every decoded frame. It is not safe for concurrent use.
type Pipeline struct {
	state   State
	source  Source
	ops     []core.Operation
	hooks   []core.Hook
	images  []*core.ImageData
	timings []Timing
}

// New returns an empty Pipeline.
func New() *Pipeline { return &Pipeline{} }

// AddHook registers an observer.  Returns the same Pipeline for chaining.
func (p *Pipeline) AddHook(h core.Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// State reports the current lifecycle stage.
func (p *Pipeline) State() State { return p.state }

func (p *Pipeline) transition(to State, allowed ...State) error {
	for _, s := range allowed {
		if p.state == s {
			p.state = to
			return nil
		}
	}
	return apperrors.New(apperrors.CategoryPipeline, "transition",
		fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, p.state, to))
}

// ChainDecoder sets the source to decode. Valid only on an empty pipeline.
func (p *Pipeline) ChainDecoder(src Source) error {
	if src == nil {
		return apperrors.New(apperrors.CategoryPipeline, "chain_decoder", apperrors.ErrEmptyInput)
	}
	if err := p.transition(StateDecoderChained, StateEmpty); err != nil {
		return err
	}
	p.source = src
	return nil
}

// AddOperation appends op to the chain. Valid after ChainDecoder and before
// AdvanceToEnd.
func (p *Pipeline) AddOperation(op core.Operation) error {
	if op == nil {
		return apperrors.New(apperrors.CategoryPipeline, "add_operation", apperrors.ErrEmptyInput)
	}
	if err := p.transition(StateOperationsAppended, StateDecoderChained, StateOperationsAppended); err != nil {
		return err
	}
	p.ops = append(p.ops, op)
	return nil
}

// AdvanceToEnd decodes the source and runs every operation, in order, over
// every frame. The first failure stops the run and nothing is stored; the
// pipeline can then not be advanced again.
func (p *Pipeline) AdvanceToEnd(ctx context.Context) error {
	if err := p.transition(StateAdvanced, StateDecoderChained, StateOperationsAppended); err != nil {
		return err
	}

	var frames []*core.ImageData
	err := p.runStep(ctx, "decode:"+string(p.source.Format()), nil, func(ctx context.Context) (*core.ImageData, error) {
		var err error
		frames, err = p.source.Decode(ctx)
		if err != nil {
			return nil, err
		}
		if len(frames) == 0 {
			return nil, apperrors.New(apperrors.CategoryDecode, "decode", apperrors.ErrEmptyInput)
		}
		return frames[0], nil
	})
	if err != nil {
		return err
	}

	for _, op := range p.ops {
		for i, img := range frames {
			if err := ctx.Err(); err != nil {
				return apperrors.Wrap(apperrors.CategoryPipeline, op.Name(), err)
			}
			var out *core.ImageData
			err := p.runStep(ctx, op.Name(), img, func(ctx context.Context) (*core.ImageData, error) {
				var err error
				out, err = op.Apply(ctx, img)
				return out, err
			})
			if err != nil {
				return err
			}
			frames[i] = out
		}
	}

	p.images = frames
	return nil
}

// runStep executes a single step, calling hooks around it and recording its
// duration.
func (p *Pipeline) runStep(ctx context.Context, name string, in *core.ImageData, fn func(context.Context) (*core.ImageData, error)) error {
	ctxs := make([]context.Context, len(p.hooks))
	stepCtx := ctx
	for i, h := range p.hooks {
		stepCtx = h.BeforeStep(stepCtx, name, in)
		ctxs[i] = stepCtx
	}

	start := time.Now()
	out, err := fn(stepCtx)
	elapsed := time.Since(start)
	p.timings = append(p.timings, Timing{Step: name, Duration: elapsed})

	for i := len(p.hooks) - 1; i >= 0; i-- {
		p.hooks[i].AfterStep(ctxs[i], name, out, elapsed, err)
	}
	return err
}

// Images returns the produced frames. Valid only after a successful
// AdvanceToEnd; the returned slice is a copy and may be called repeatedly.
func (p *Pipeline) Images() ([]*core.ImageData, error) {
	if p.state != StateAdvanced || p.images == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, "images",
			fmt.Errorf("%w: images requested in state %s", apperrors.ErrInvalidTransition, p.state))
	}
	out := make([]*core.ImageData, len(p.images))
	copy(out, p.images)
	return out, nil
}

// Operations returns the chain in execution order.
func (p *Pipeline) Operations() []core.Operation {
	out := make([]core.Operation, len(p.ops))
	copy(out, p.ops)
	return out
}

// Timings returns per-step durations in execution order.
func (p *Pipeline) Timings() []Timing {
	out := make([]Timing, len(p.timings))
	copy(out, p.timings)
	return out
}
