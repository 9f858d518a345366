// Package config locates and parses the .simple-debug.json breakpoint file.
//
// The file is a JSON array of per-source-file groups:
//
//	[
//	  {
//	    "file": "main.c",
//	    "breakpoints": [
//	      { "function": "main" },
//	      { "line": 42 }
//	    ]
//	  }
//	]
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// BreakpointSpec is one entry of a group's breakpoint list. Exactly one of
// Function or Line is expected; when both are set Function wins.
type BreakpointSpec struct {
	Function string `json:"function,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// IsFunction reports whether the breakpoint targets a function entry.
func (s BreakpointSpec) IsFunction() bool {
	return s.Function != ""
}

// Ambiguous reports whether both function and line were given.
func (s BreakpointSpec) Ambiguous() bool {
	return s.Function != "" && s.Line != 0
}

// FileBreakpoints groups the breakpoints of one source file, in file order.
type FileBreakpoints struct {
	File        string           `json:"file"`
	Breakpoints []BreakpointSpec `json:"breakpoints,omitempty"`
}

// Load reads and parses the file at path.
func Load(path string) ([]FileBreakpoints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	groups, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
			return nil, pe
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return groups, nil
}

// Parse validates data against the breakpoint file schema and decodes it.
// Any failure is returned as a *ParseError and no groups are returned.
func Parse(data []byte) ([]FileBreakpoints, error) {
	problems, err := validate(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(problems) > 0 {
		return nil, &ParseError{Problems: problems}
	}

	var groups []FileBreakpoints
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&groups); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("decode: %w", err)}
	}
	return groups, nil
}
