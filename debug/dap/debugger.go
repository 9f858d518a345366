package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/go-dap"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/log"
)

// Options configures Dial.
type Options struct {
	// BaseDir resolves relative source paths; adapters expect absolute ones.
	// breakpoints.Apply replaces it with the config file's directory.
	BaseDir string

	// Launch or Attach, if set, is sent right after initialize
	Launch json.RawMessage
	Attach json.RawMessage

	Logger log.Logger
}

// Debugger issues breakpoint directives over DAP.
//
// DAP has no "add one breakpoint" request: setBreakpoints replaces a file's
// whole set and setFunctionBreakpoints replaces all function breakpoints.
// Debugger therefore keeps the requested sets and resends them on each
// directive, remembering the adapter's latest answer for listings.
type Debugger struct {
	Client  *Client
	baseDir string
	logger  log.Logger

	capabilities dap.Capabilities

	files     []string         // in first-seen order
	lines     map[string][]int // per file, in directive order
	functions []string

	fileBps     map[string][]dap.Breakpoint
	functionBps []dap.Breakpoint
}

var (
	_ common.Debugger           = (*Debugger)(nil)
	_ common.Clearer            = (*Debugger)(nil)
	_ common.BaseDirSetter      = (*Debugger)(nil)
	_ common.ConfigurationDoner = (*Debugger)(nil)
)

// Dial connects to the adapter at addr, initializes the session and sends
// launch or attach when requested.
func Dial(ctx context.Context, addr string, opts Options) (*Debugger, error) {
	client, err := Connect(ctx, addr, opts.Logger)
	if err != nil {
		return nil, err
	}
	d, err := New(ctx, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return d, nil
}

// New initializes a session on an existing client.
func New(ctx context.Context, client *Client, opts Options) (*Debugger, error) {
	d := &Debugger{
		Client:  client,
		baseDir: opts.BaseDir,
		logger:  log.OrNop(opts.Logger),
		lines:   make(map[string][]int),
		fileBps: make(map[string][]dap.Breakpoint),
	}

	caps, err := client.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize debug adapter: %w", err)
	}
	d.capabilities = caps

	switch {
	case len(opts.Launch) > 0:
		if err := client.Launch(ctx, opts.Launch); err != nil {
			return nil, fmt.Errorf("failed to launch program: %w", err)
		}
	case len(opts.Attach) > 0:
		if err := client.Attach(ctx, opts.Attach); err != nil {
			return nil, fmt.Errorf("failed to attach: %w", err)
		}
	}
	return d, nil
}

// ConfigurationDone lets the target run once breakpoints are in place.
func (d *Debugger) ConfigurationDone(ctx context.Context) error {
	if !d.capabilities.SupportsConfigurationDoneRequest {
		return nil
	}
	return d.Client.ConfigurationDone(ctx)
}

// SetBaseDir changes the directory relative source files are joined with.
func (d *Debugger) SetBaseDir(dir string) {
	d.baseDir = dir
}

func (d *Debugger) resolve(file string) string {
	if d.baseDir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(d.baseDir, file)
}

// CreateBreakpoint adds the directive to the matching set and resends it.
// A breakpoint the adapter could not verify is reported as an error and
// removed from the set again, so it is not resent with later directives.
func (d *Debugger) CreateBreakpoint(ctx context.Context, dir common.Directive) (int, error) {
	switch dir.Kind {
	case common.DirectiveFunction:
		if !d.capabilities.SupportsFunctionBreakpoints {
			return 0, fmt.Errorf("adapter does not support function breakpoints")
		}
		d.functions = append(d.functions, dir.Function)
		bps, err := d.Client.SetFunctionBreakpoints(ctx, d.functions)
		if err != nil {
			d.functions = d.functions[:len(d.functions)-1]
			return 0, fmt.Errorf("failed to set function breakpoint %s: %w", dir.Function, err)
		}
		d.functionBps = bps
		id, err := lastResult(bps, len(d.functions))
		if err != nil {
			d.dropLastFunction(ctx)
			return 0, err
		}
		return id, nil
	case common.DirectiveLine:
		path := d.resolve(dir.File)
		if _, ok := d.lines[path]; !ok {
			d.files = append(d.files, path)
		}
		d.lines[path] = append(d.lines[path], dir.Line)
		bps, err := d.Client.SetBreakpoints(ctx, path, d.lines[path])
		if err != nil {
			d.lines[path] = d.lines[path][:len(d.lines[path])-1]
			return 0, fmt.Errorf("failed to set breakpoint at %s:%d: %w", path, dir.Line, err)
		}
		d.fileBps[path] = bps
		id, err := lastResult(bps, len(d.lines[path]))
		if err != nil {
			d.dropLastLine(ctx, path)
			return 0, err
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported directive kind %q", dir.Kind)
	}
}

func (d *Debugger) dropLastFunction(ctx context.Context) {
	d.functions = d.functions[:len(d.functions)-1]
	bps, err := d.Client.SetFunctionBreakpoints(ctx, d.functions)
	if err != nil {
		d.logger.Warnf("failed to withdraw unverified function breakpoint: %v", err)
		d.functionBps = truncate(d.functionBps, len(d.functions))
		return
	}
	d.functionBps = bps
}

func (d *Debugger) dropLastLine(ctx context.Context, path string) {
	d.lines[path] = d.lines[path][:len(d.lines[path])-1]
	bps, err := d.Client.SetBreakpoints(ctx, path, d.lines[path])
	if err != nil {
		d.logger.Warnf("failed to withdraw unverified breakpoint in %s: %v", path, err)
		d.fileBps[path] = truncate(d.fileBps[path], len(d.lines[path]))
		return
	}
	d.fileBps[path] = bps
}

func truncate(bps []dap.Breakpoint, n int) []dap.Breakpoint {
	if len(bps) > n {
		return bps[:n]
	}
	return bps
}

// lastResult picks the adapter's answer for the directive just appended;
// answers are positional.
func lastResult(bps []dap.Breakpoint, requested int) (int, error) {
	if len(bps) != requested {
		return 0, fmt.Errorf("adapter answered %d breakpoints for %d requested", len(bps), requested)
	}
	bp := bps[requested-1]
	if !bp.Verified {
		msg := bp.Message
		if msg == "" {
			msg = "not verified"
		}
		return bp.Id, fmt.Errorf("breakpoint %d: %s", bp.Id, msg)
	}
	return bp.Id, nil
}

// ListBreakpoints renders the adapter's latest answers: line breakpoints by
// file, then function breakpoints.
func (d *Debugger) ListBreakpoints(ctx context.Context) (string, error) {
	var infos []common.BreakpointInfo
	for _, file := range d.files {
		for _, bp := range d.fileBps[file] {
			infos = append(infos, toInfo(bp, file, ""))
		}
	}
	for i, bp := range d.functionBps {
		name := ""
		if i < len(d.functions) {
			name = d.functions[i]
		}
		infos = append(infos, toInfo(bp, "", name))
	}
	return common.FormatBreakpoints(infos), nil
}

func toInfo(bp dap.Breakpoint, file string, function string) common.BreakpointInfo {
	if bp.Source != nil && bp.Source.Path != "" {
		file = bp.Source.Path
	}
	return common.BreakpointInfo{
		ID:       bp.Id,
		Function: function,
		File:     file,
		Line:     bp.Line,
		Verified: bp.Verified,
		Message:  bp.Message,
	}
}

// ClearBreakpoint drops the breakpoint with the given adapter ID from its set
// and resends that set.
func (d *Debugger) ClearBreakpoint(ctx context.Context, id int) error {
	for i, bp := range d.functionBps {
		if bp.Id != id || i >= len(d.functions) {
			continue
		}
		functions := append(append([]string{}, d.functions[:i]...), d.functions[i+1:]...)
		bps, err := d.Client.SetFunctionBreakpoints(ctx, functions)
		if err != nil {
			return fmt.Errorf("failed to clear breakpoint %d: %w", id, err)
		}
		d.functions = functions
		d.functionBps = bps
		return nil
	}

	for _, file := range d.files {
		for i, bp := range d.fileBps[file] {
			if bp.Id != id || i >= len(d.lines[file]) {
				continue
			}
			lines := append(append([]int{}, d.lines[file][:i]...), d.lines[file][i+1:]...)
			bps, err := d.Client.SetBreakpoints(ctx, file, lines)
			if err != nil {
				return fmt.Errorf("failed to clear breakpoint %d: %w", id, err)
			}
			d.lines[file] = lines
			d.fileBps[file] = bps
			return nil
		}
	}
	return fmt.Errorf("breakpoint %d not found", id)
}

// Close closes the connection. Most adapters end the session with it.
func (d *Debugger) Close() error {
	return d.Client.Close()
}
