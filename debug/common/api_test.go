package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectiveString(t *testing.T) {
	assert.Equal(t, "function main", FunctionDirective("main").String())
	assert.Equal(t, "a.c:10", LineDirective("a.c", 10).String())
	assert.Equal(t, `unknown directive "watch"`, Directive{Kind: "watch"}.String())
}

func TestFormatBreakpoints(t *testing.T) {
	assert.Equal(t, "Breakpoints:\nNo breakpoints set.", FormatBreakpoints(nil))

	out := FormatBreakpoints([]BreakpointInfo{
		{ID: 1, Function: "main.main", File: "/src/main.go", Line: 7, Verified: true},
		{ID: 2, File: "a.c", Line: 10, Disabled: true, Verified: true},
		{ID: 3, Function: "nosuch", Message: "could not find function"},
	})
	assert.Equal(t, "Breakpoints:\n"+
		"1: main.main /src/main.go:7 (enabled)\n"+
		"2: a.c:10 (disabled)\n"+
		"3: nosuch ? (pending) could not find function\n", out)
}
