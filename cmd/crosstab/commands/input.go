package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/spektr-org/crosstab/dataset"
	"github.com/spektr-org/crosstab/engine"
	"github.com/spektr-org/crosstab/schema"
)

// Sentinel errors.
var (
	ErrNoInput       = errors.New("--file is required")
	ErrInputTooLarge = errors.New("input file exceeds input.max_size")
	ErrConflict      = errors.New("conflicting flags")
)

// readInput reads a data file, refusing anything over limit bytes.
func readInput(path string, limit uint64) ([]byte, error) {
	if path == "" {
		return nil, ErrNoInput
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if limit > 0 && uint64(info.Size()) > limit {
		return nil, fmt.Errorf("%w: %s is %s, limit %s", ErrInputTooLarge,
			path, humanize.Bytes(uint64(info.Size())), humanize.Bytes(limit))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// requestFlags are the ways a cube request can be named on the command line.
type requestFlags struct {
	file   string
	name   string
	group  []string
	mapTo  []string
	reduce []string
}

func (f requestFlags) inline() bool {
	return len(f.group) > 0 || len(f.mapTo) > 0 || len(f.reduce) > 0
}

// resolveRequest picks the request from a request file, a saved request, or
// the inline flags, in that order of precedence; mixing them is an error.
//
// Inline flags fill gaps from the schema: no reducer means the default
// measure with its default reducer, no extractor means the default measure
// for every reducer, and a single extractor is shared by every reducer.
func resolveRequest(f requestFlags, sch *schema.Config, reg *engine.Registry[dataset.Record]) (engine.Request, error) {
	switch {
	case f.file != "" && (f.name != "" || f.inline()):
		return engine.Request{}, fmt.Errorf("%w: --request with --name or inline request flags", ErrConflict)
	case f.name != "" && f.inline():
		return engine.Request{}, fmt.Errorf("%w: --name with inline request flags", ErrConflict)
	case f.file != "":
		return schema.LoadRequest(f.file)
	case f.name != "":
		return reg.Factory(f.name)
	}

	req := engine.Request{Group: f.group, Map: f.mapTo, Reduce: f.reduce}
	measure := sch.DefaultMeasure()

	if len(req.Reduce) == 0 {
		reducer := "count"
		if m, ok := sch.Measure(measure); ok && m.DefaultReducer != "" {
			reducer = m.DefaultReducer
		}
		req.Reduce = []string{reducer}
	}

	switch {
	case len(req.Map) == 0:
		extractor := measure
		if extractor == "" {
			extractor = "self"
		}
		for range req.Reduce {
			req.Map = append(req.Map, extractor)
		}
	case len(req.Map) == 1 && len(req.Reduce) > 1:
		for len(req.Map) < len(req.Reduce) {
			req.Map = append(req.Map, req.Map[0])
		}
	}

	if err := req.Validate(); err != nil {
		return engine.Request{}, err
	}
	return req, nil
}
