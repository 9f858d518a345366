package config

import (
	"strings"
)

// ParseError reports a breakpoint file that could not be read, is not JSON,
// or does not have the expected shape.
type ParseError struct {
	Path     string
	Problems []string // schema violations, if any
	Err      error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid breakpoint file")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Problems) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, "; "))
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
