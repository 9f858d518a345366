// Package script renders breakpoint directives as debugger commands.
//
// The output is meant to be sourced by the debugger at startup, e.g.
//
//	simple-debug script -o /tmp/bp.lldb && lldb -s /tmp/bp.lldb ./prog
//	simple-debug script --dialect dlv -o bp.dlv && dlv exec ./prog --init bp.dlv
package script

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xhd2015/simple-debug/debug/common"
)

// Dialect is the command syntax of one debugger.
type Dialect struct {
	Name          string
	FunctionBreak func(name string) string
	LineBreak     func(file string, line int) string
	List          string
}

var dialects = map[string]Dialect{
	"lldb": {
		Name: "lldb",
		FunctionBreak: func(name string) string {
			return "breakpoint set -n " + quote(name)
		},
		LineBreak: func(file string, line int) string {
			return fmt.Sprintf("breakpoint set -f %s -l %d", quote(file), line)
		},
		List: "breakpoint list",
	},
	"gdb": {
		Name: "gdb",
		FunctionBreak: func(name string) string {
			return "break " + quote(name)
		},
		LineBreak: func(file string, line int) string {
			return fmt.Sprintf("break %s:%d", quote(file), line)
		},
		List: "info breakpoints",
	},
	"dlv": {
		Name: "dlv",
		FunctionBreak: func(name string) string {
			return "break " + name
		},
		LineBreak: func(file string, line int) string {
			return fmt.Sprintf("break %s:%d", file, line)
		},
		List: "breakpoints",
	},
}

// DefaultDialect is used when no dialect is given.
const DefaultDialect = "lldb"

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// Names lists the registered dialects in sorted order.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command renders d in this dialect.
func (dl Dialect) Command(d common.Directive) (string, error) {
	switch d.Kind {
	case common.DirectiveFunction:
		return dl.FunctionBreak(d.Function), nil
	case common.DirectiveLine:
		return dl.LineBreak(d.File, d.Line), nil
	default:
		return "", fmt.Errorf("%s: unsupported directive kind %q", dl.Name, d.Kind)
	}
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return strconv.Quote(s)
	}
	return s
}

// Debugger writes one command line per call. It never talks to a live
// debugger, so IDs are always 0 and listings are empty: the listing is
// printed by the debugger that sources the script.
type Debugger struct {
	mu      sync.Mutex
	w       io.Writer
	dialect Dialect
	lines   int
}

var _ common.Debugger = (*Debugger)(nil)

// New returns a Debugger writing dialect commands to w.
func New(w io.Writer, dialect Dialect) *Debugger {
	return &Debugger{w: w, dialect: dialect}
}

// Dialect returns the dialect this debugger writes.
func (d *Debugger) Dialect() Dialect {
	return d.dialect
}

// Lines returns how many commands have been written.
func (d *Debugger) Lines() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lines
}

func (d *Debugger) CreateBreakpoint(ctx context.Context, dir common.Directive) (int, error) {
	cmd, err := d.dialect.Command(dir)
	if err != nil {
		return 0, err
	}
	return 0, d.writeLine(cmd)
}

func (d *Debugger) ListBreakpoints(ctx context.Context) (string, error) {
	return "", d.writeLine(d.dialect.List)
}

func (d *Debugger) Close() error {
	if c, ok := d.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Debugger) writeLine(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := io.WriteString(d.w, cmd+"\n"); err != nil {
		return fmt.Errorf("failed to write %s command: %w", d.dialect.Name, err)
	}
	d.lines++
	return nil
}
