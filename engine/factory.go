package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// FACTORY — Entry point: Grid(registry, items)
// ============================================================================
// Pipeline:
//   1. Validate the request (aligned map/reduce lists, axis count)
//   2. Enumerate all 2^n inclusion patterns
//   3. Build one Program per pattern through the registry
//   4. Run every Program over the same items (in order, or bounded-parallel)
//   5. Fold the pattern results into one empty Grid, in pattern order
//   6. Seal and return the Grid
//
// Any failure aborts the build. There is no partial grid.
// ============================================================================

const tracerName = "github.com/spektr-org/crosstab/engine"

// Request names what to build: grouping dimensions, value extractors and the
// reducers aligned with them (reducer j consumes extractor j).
type Request struct {
	Name   string   `json:"name,omitempty" yaml:"name,omitempty"`
	Group  []string `json:"group" yaml:"group"`
	Map    []string `json:"map" yaml:"map"`
	Reduce []string `json:"reduce" yaml:"reduce"`
}

// Validate checks the request shape. It does not consult a registry.
func (r Request) Validate() error {
	if len(r.Map) != len(r.Reduce) {
		return fmt.Errorf("%w: %d value extractors, %d reducers", ErrArityMismatch, len(r.Map), len(r.Reduce))
	}
	if len(r.Group) > MaxAxes {
		return fmt.Errorf("%w: %d > %d", ErrTooManyAxes, len(r.Group), MaxAxes)
	}
	for i, name := range r.Group {
		if name == "" {
			return fmt.Errorf("group dimension %d: %w", i, ErrEmptyName)
		}
	}
	return nil
}

func (r Request) clone() Request {
	return Request{
		Name:   r.Name,
		Group:  append([]string(nil), r.Group...),
		Map:    append([]string(nil), r.Map...),
		Reduce: append([]string(nil), r.Reduce...),
	}
}

// Factory builds cubes for one request.
type Factory[T any] struct {
	request Request
	cfg     *config
}

// NewFactory validates req and returns a Factory.
func NewFactory[T any](req Request, opts ...Option) (*Factory[T], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Factory[T]{request: req.clone(), cfg: applyOptions(opts)}, nil
}

// Name is the request name, or the grouping dimensions joined by "_".
func (f *Factory[T]) Name() string {
	if f.request.Name != "" {
		return f.request.Name
	}
	return strings.Join(f.request.Group, "_")
}

// Request returns a copy of the factory's request.
func (f *Factory[T]) Request() Request { return f.request.clone() }

// Combinations enumerates the inclusion patterns of the request's group.
func (f *Factory[T]) Combinations() []Pattern { return Combinations(f.request.Group) }

// Build resolves one Program per inclusion pattern.
func (f *Factory[T]) Build(reg *Registry[T]) ([]*Program[T], error) {
	patterns := f.Combinations()
	programs := make([]*Program[T], len(patterns))
	for i, p := range patterns {
		prog, err := NewProgram(reg, p, f.request.Map, f.request.Reduce)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", f.Name(), err)
		}
		programs[i] = prog
	}
	return programs, nil
}

// Grid builds the full cube over items.
func (f *Factory[T]) Grid(reg *Registry[T], items []T) (*Grid[T], error) {
	return f.GridContext(context.Background(), reg, items)
}

// GridContext builds the full cube over items. ctx carries tracing and lets a
// failing pattern stop the others early in parallel mode.
func (f *Factory[T]) GridContext(ctx context.Context, reg *Registry[T], items []T) (grid *Grid[T], err error) {
	start := time.Now()
	logger := f.cfg.Logger.With("factory", f.Name())
	completed := 0

	ctx, span := f.cfg.TracerProvider.Tracer(tracerName).Start(ctx, "crosstab.grid",
		trace.WithAttributes(
			attribute.String("crosstab.factory", f.Name()),
			attribute.Int("crosstab.axes", len(f.request.Group)),
			attribute.Int("crosstab.items", len(items)),
		))
	defer func() {
		cells := 0
		if grid != nil {
			cells = grid.Len()
		}
		f.cfg.Metrics.observe(start, completed, cells, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("crosstab.cells", cells))
		}
		span.End()
	}()

	programs, err := f.Build(reg)
	if err != nil {
		return nil, err
	}

	results, err := f.run(ctx, programs, items)
	for _, r := range results {
		if r != nil {
			completed++
		}
	}
	if err != nil {
		logger.ErrorContext(ctx, "cube build failed", "error", err)
		return nil, err
	}

	grid = NewGrid(f.request, reg)
	for _, r := range results {
		if err := grid.Merge(r); err != nil {
			return nil, fmt.Errorf("build %s: %w", f.Name(), err)
		}
	}
	grid.seal()

	logger.InfoContext(ctx, "cube built",
		"patterns", len(programs),
		"items", len(items),
		"cells", grid.Len(),
		"duration", time.Since(start))
	return grid, nil
}

// run executes programs and returns their results indexed like programs.
// On failure the slots of patterns that did not complete are nil.
func (f *Factory[T]) run(ctx context.Context, programs []*Program[T], items []T) ([]*PatternResult[T], error) {
	results := make([]*PatternResult[T], len(programs))
	tracer := f.cfg.TracerProvider.Tracer(tracerName)

	runOne := func(ctx context.Context, i int) error {
		prog := programs[i]
		ctx, span := tracer.Start(ctx, "crosstab.pattern",
			trace.WithAttributes(attribute.String("crosstab.pattern", prog.Pattern.String())))
		defer span.End()

		r, err := prog.Run(items)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("build %s: %w", f.Name(), err)
		}
		f.cfg.Logger.DebugContext(ctx, "pattern run", "pattern", prog.Pattern.String(), "cells", len(r.Order))
		results[i] = r
		return nil
	}

	if f.cfg.Workers <= 1 {
		for i := range programs {
			if err := runOne(ctx, i); err != nil {
				return results, err
			}
		}
		return results, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)
	for i := range programs {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return runOne(gCtx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
