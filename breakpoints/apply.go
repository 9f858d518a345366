// Package breakpoints applies a .simple-debug.json file to a debugger.
//
// Load is the entry point a host calls once per debug session: it locates
// the file, issues one directive per configured breakpoint and finally asks
// the debugger to list what it now has.
package breakpoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xhd2015/simple-debug/config"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/log"
)

const (
	msgReading  = "simple-debug reading breakpoints from:"
	msgNotFound = "Couldn't find " + config.FileName + " file in the project or its parents."
	msgCreated  = "simple-debug created the following breakpoints:"
)

// Options configures one Load or Apply call.
type Options struct {
	// StartDir is where the upward search begins; empty means the
	// working directory
	StartDir string

	// Out receives the user-facing messages and the breakpoint listing.
	// Nil discards them.
	Out io.Writer

	Logger log.Logger
}

// Created records a directive the debugger accepted.
type Created struct {
	Directive common.Directive
	ID        int
}

// Failed records a directive the debugger rejected.
type Failed struct {
	Directive common.Directive
	Err       error
}

// Result describes what one invocation did.
type Result struct {
	ID         string
	ConfigPath string // empty when no file was found
	Directives []common.Directive
	Created    []Created
	Failed     []Failed
	Listing    string
}

// Found reports whether a breakpoint file was located.
func (r *Result) Found() bool {
	return r.ConfigPath != ""
}

// Load locates the breakpoint file starting at opts.StartDir and applies it
// to dbg.
func Load(ctx context.Context, dbg common.Debugger, opts Options) (*Result, error) {
	path, err := config.Locate(opts.StartDir)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}
	return Apply(ctx, dbg, path, opts)
}

// Apply issues the breakpoints of the file at path to dbg. An empty path
// means no file was found: a diagnostic is printed and only the listing is
// requested.
//
// A *config.ParseError is returned before any directive from the file is
// issued. Directives the debugger rejects are recorded in Result.Failed and
// do not stop the remaining ones.
func Apply(ctx context.Context, dbg common.Debugger, path string, opts Options) (*Result, error) {
	logger := log.OrNop(opts.Logger)
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	res := &Result{
		ID:         uuid.NewString(),
		ConfigPath: path,
	}

	if path == "" {
		logger.Infof("run %s: %s", res.ID, msgNotFound)
		fmt.Fprintln(out, msgNotFound)
	} else {
		logger.Infof("run %s: reading breakpoints from %s", res.ID, path)
		fmt.Fprintln(out, msgReading+path)

		groups, err := config.Load(path)
		if err != nil {
			logger.Errorf("run %s: %v", res.ID, err)
			return res, err
		}

		// relative files in the config are relative to the config itself
		if s, ok := dbg.(common.BaseDirSetter); ok {
			s.SetBaseDir(filepath.Dir(path))
		}

		res.Directives = Plan(groups, logger)
		for _, d := range res.Directives {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			id, err := dbg.CreateBreakpoint(ctx, d)
			if err != nil {
				logger.Warnf("run %s: breakpoint %s: %v", res.ID, d, err)
				res.Failed = append(res.Failed, Failed{Directive: d, Err: err})
				continue
			}
			logger.Debugf("run %s: breakpoint %s created with ID %d", res.ID, d, id)
			res.Created = append(res.Created, Created{Directive: d, ID: id})
		}
	}

	fmt.Fprintln(out, msgCreated)
	listing, err := dbg.ListBreakpoints(ctx)
	if err != nil {
		logger.Warnf("run %s: list breakpoints: %v", res.ID, err)
	} else {
		res.Listing = listing
		if listing != "" {
			fmt.Fprintln(out, listing)
		}
	}
	return res, nil
}

// Plan converts parsed groups into directives: file order, then breakpoint
// order within each file. A spec naming a function becomes a function
// directive without a file qualifier even if it also carries a line.
func Plan(groups []config.FileBreakpoints, logger log.Logger) []common.Directive {
	logger = log.OrNop(logger)

	var directives []common.Directive
	for _, g := range groups {
		for _, spec := range g.Breakpoints {
			if spec.IsFunction() {
				if spec.Ambiguous() {
					logger.Warnf("%s: breakpoint has both function %q and line %d, using function", g.File, spec.Function, spec.Line)
				}
				directives = append(directives, common.FunctionDirective(spec.Function))
				continue
			}
			directives = append(directives, common.LineDirective(g.File, spec.Line))
		}
	}
	return directives
}

// Clear removes the breakpoints a previous run created, when dbg supports
// it. It returns the number removed.
func Clear(ctx context.Context, dbg common.Debugger, prev *Result, logger log.Logger) (int, error) {
	logger = log.OrNop(logger)
	if prev == nil {
		return 0, nil
	}
	clearer, ok := dbg.(common.Clearer)
	if !ok {
		return 0, nil
	}

	var errs []error
	n := 0
	for _, c := range prev.Created {
		if c.ID <= 0 {
			continue
		}
		if err := clearer.ClearBreakpoint(ctx, c.ID); err != nil {
			logger.Warnf("clear breakpoint %d (%s): %v", c.ID, c.Directive, err)
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
