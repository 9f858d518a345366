package common

import (
	"fmt"
	"strings"
)

// BreakpointInfo is the backend-neutral view of a breakpoint used for
// listings.
type BreakpointInfo struct {
	ID       int
	Function string
	File     string
	Line     int
	Disabled bool
	Verified bool
	Message  string
}

// FormatBreakpoints renders a listing the way all backends print it.
func FormatBreakpoints(bps []BreakpointInfo) string {
	var builder strings.Builder
	builder.WriteString("Breakpoints:\n")

	if len(bps) == 0 {
		builder.WriteString("No breakpoints set.")
		return builder.String()
	}

	for _, bp := range bps {
		status := "enabled"
		if bp.Disabled {
			status = "disabled"
		} else if !bp.Verified {
			status = "pending"
		}

		loc := fmt.Sprintf("%s:%d", bp.File, bp.Line)
		if bp.File == "" {
			loc = "?"
		}
		if bp.Function != "" {
			loc = bp.Function + " " + loc
		}
		builder.WriteString(fmt.Sprintf("%d: %s (%s)", bp.ID, loc, status))
		if bp.Message != "" {
			builder.WriteString(" " + bp.Message)
		}
		builder.WriteString("\n")
	}

	return builder.String()
}
