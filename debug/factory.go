package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/debug/dap"
	"github.com/xhd2015/simple-debug/debug/headless"
	"github.com/xhd2015/simple-debug/debug/script"
	"github.com/xhd2015/simple-debug/log"
)

const (
	TypeHeadless = "headless"
	TypeDAP      = "dap"
)

// Options configures NewDebugger. Addr is used by the network debuggers,
// Out by the script dialects, Launch and Attach by dap only.
type Options struct {
	Addr   string
	Out    io.Writer
	Launch json.RawMessage
	Attach json.RawMessage
	Logger log.Logger
}

// Types lists every debugger type NewDebugger accepts.
func Types() []string {
	types := append([]string{TypeHeadless, TypeDAP}, script.Names()...)
	sort.Strings(types)
	return types
}

// IsScript reports whether debuggerType renders a command script instead of
// talking to a live debugger.
func IsScript(debuggerType string) bool {
	_, ok := script.Lookup(debuggerType)
	return ok
}

// NewDebugger creates a debugger based on the debugger type
func NewDebugger(ctx context.Context, debuggerType string, opts Options) (common.Debugger, error) {
	if err := checkSessionArgs(debuggerType, opts); err != nil {
		return nil, err
	}

	switch debuggerType {
	case TypeHeadless:
		if opts.Addr == "" {
			return nil, fmt.Errorf("%s debugger requires an address", debuggerType)
		}
		d, err := headless.Dial(ctx, opts.Addr, opts.Logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case TypeDAP:
		if opts.Addr == "" {
			return nil, fmt.Errorf("%s debugger requires an address", debuggerType)
		}
		d, err := dap.Dial(ctx, opts.Addr, dap.Options{
			Launch: opts.Launch,
			Attach: opts.Attach,
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	if dialect, ok := script.Lookup(debuggerType); ok {
		out := opts.Out
		if out == nil {
			return nil, fmt.Errorf("%s script requires an output writer", debuggerType)
		}
		return script.New(out, dialect), nil
	}
	return nil, fmt.Errorf("unsupported debugger type: %s", debuggerType)
}

func checkSessionArgs(debuggerType string, opts Options) error {
	for _, arg := range []struct {
		name  string
		value json.RawMessage
	}{
		{"launch", opts.Launch},
		{"attach", opts.Attach},
	} {
		if len(arg.value) == 0 {
			continue
		}
		if debuggerType != TypeDAP {
			return fmt.Errorf("%s arguments require the %s debugger", arg.name, TypeDAP)
		}
		if !json.Valid(arg.value) {
			return fmt.Errorf("%s arguments are not valid JSON", arg.name)
		}
	}
	return nil
}
