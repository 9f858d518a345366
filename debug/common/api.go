package common

import (
	"context"
	"fmt"
)

// Debugger is the command sink breakpoint directives are issued to.
// Backends for Delve headless, DAP and text command scripts implement it.
type Debugger interface {
	// CreateBreakpoint issues one directive and returns the debugger's
	// breakpoint ID, or 0 when the backend has no IDs to report
	CreateBreakpoint(ctx context.Context, d Directive) (int, error)

	// ListBreakpoints asks the debugger for its current breakpoints and
	// returns whatever text it produced for the user
	ListBreakpoints(ctx context.Context) (string, error)

	// Close releases the connection or writer
	Close() error
}

// Clearer is implemented by debuggers that can delete a breakpoint by ID.
type Clearer interface {
	ClearBreakpoint(ctx context.Context, id int) error
}

// BaseDirSetter is implemented by debuggers that need absolute source paths.
// Relative files of later directives are joined with dir.
type BaseDirSetter interface {
	SetBaseDir(dir string)
}

// ConfigurationDoner is implemented by debuggers whose target waits until
// breakpoints are configured.
type ConfigurationDoner interface {
	ConfigurationDone(ctx context.Context) error
}

// DirectiveKind tells function directives from file+line ones.
type DirectiveKind string

const (
	DirectiveFunction DirectiveKind = "function"
	DirectiveLine     DirectiveKind = "line"
)

// Directive is a single breakpoint-creation request.
type Directive struct {
	Kind     DirectiveKind
	Function string // set for DirectiveFunction
	File     string // set for DirectiveLine
	Line     int    // set for DirectiveLine
}

// FunctionDirective returns a directive that breaks on entry to name.
func FunctionDirective(name string) Directive {
	return Directive{Kind: DirectiveFunction, Function: name}
}

// LineDirective returns a directive that breaks at file:line.
func LineDirective(file string, line int) Directive {
	return Directive{Kind: DirectiveLine, File: file, Line: line}
}

func (d Directive) String() string {
	switch d.Kind {
	case DirectiveFunction:
		return "function " + d.Function
	case DirectiveLine:
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	default:
		return fmt.Sprintf("unknown directive %q", string(d.Kind))
	}
}
