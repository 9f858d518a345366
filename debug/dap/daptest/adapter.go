// Package daptest provides an in-process debug adapter for tests.
package daptest

import (
	"bufio"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-dap"
)

// Adapter answers DAP requests the way a Go adapter would, emitting an
// output event before every response. Breakpoint IDs are stable per
// file:line or function name.
type Adapter struct {
	ln net.Listener

	mu       sync.Mutex
	commands []string
	launch   json.RawMessage
	attach   json.RawMessage
	sources  []string // source path of every setBreakpoints request
	nextID   int
	ids      map[string]int
	rejected map[string]bool // function names that never verify
	hang     map[string]bool // commands left unanswered
}

// Start listens on a loopback port until the test ends.
func Start(t testing.TB) *Adapter {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	a := &Adapter{
		ln:       ln,
		ids:      make(map[string]int),
		rejected: make(map[string]bool),
		hang:     make(map[string]bool),
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go a.serve(conn)
		}
	}()
	return a
}

func (a *Adapter) Addr() string {
	return a.ln.Addr().String()
}

// RejectFunction makes function breakpoints on name come back unverified.
func (a *Adapter) RejectFunction(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected[name] = true
}

// Hang leaves requests with the given command unanswered.
func (a *Adapter) Hang(command string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hang[command] = true
}

// Commands returns the commands received so far, in order.
func (a *Adapter) Commands() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.commands...)
}

// LaunchArgs returns the arguments of the last launch request.
func (a *Adapter) LaunchArgs() json.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.launch
}

// AttachArgs returns the arguments of the last attach request.
func (a *Adapter) AttachArgs() json.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attach
}

// Sources returns the source path of every setBreakpoints request.
func (a *Adapter) Sources() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sources...)
}

func newResponse(req dap.RequestMessage) dap.Response {
	r := req.GetRequest()
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		Command:         r.Command,
		RequestSeq:      r.Seq,
		Success:         true,
	}
}

func (a *Adapter) id(key string) int {
	if id, ok := a.ids[key]; ok {
		return id
	}
	a.nextID++
	a.ids[key] = a.nextID
	return a.nextID
}

func (a *Adapter) serve(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		msg, err := dap.ReadProtocolMessage(reader)
		if err != nil {
			return
		}
		req, ok := msg.(dap.RequestMessage)
		if !ok {
			continue
		}

		resp, ok := a.answer(req)
		if !ok {
			continue
		}

		event := &dap.OutputEvent{
			Event: dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: "output"},
			Body:  dap.OutputEventBody{Output: "working\n"},
		}
		if err := dap.WriteProtocolMessage(conn, event); err != nil {
			return
		}
		if err := dap.WriteProtocolMessage(conn, resp); err != nil {
			return
		}
	}
}

func (a *Adapter) answer(req dap.RequestMessage) (dap.Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	command := req.GetRequest().Command
	a.commands = append(a.commands, command)
	if a.hang[command] {
		return nil, false
	}

	switch r := req.(type) {
	case *dap.InitializeRequest:
		return &dap.InitializeResponse{
			Response: newResponse(r),
			Body: dap.Capabilities{
				SupportsConfigurationDoneRequest: true,
				SupportsFunctionBreakpoints:      true,
			},
		}, true
	case *dap.LaunchRequest:
		a.launch = r.Arguments
		return &dap.LaunchResponse{Response: newResponse(r)}, true
	case *dap.AttachRequest:
		a.attach = r.Arguments
		return &dap.AttachResponse{Response: newResponse(r)}, true
	case *dap.ConfigurationDoneRequest:
		return &dap.ConfigurationDoneResponse{Response: newResponse(r)}, true
	case *dap.SetBreakpointsRequest:
		path := r.Arguments.Source.Path
		a.sources = append(a.sources, path)
		var bps []dap.Breakpoint
		for _, sbp := range r.Arguments.Breakpoints {
			bps = append(bps, dap.Breakpoint{
				Id:       a.id(path + ":" + strconv.Itoa(sbp.Line)),
				Verified: true,
				Source:   &dap.Source{Path: path},
				Line:     sbp.Line,
			})
		}
		return &dap.SetBreakpointsResponse{
			Response: newResponse(r),
			Body:     dap.SetBreakpointsResponseBody{Breakpoints: bps},
		}, true
	case *dap.SetFunctionBreakpointsRequest:
		var bps []dap.Breakpoint
		for _, fbp := range r.Arguments.Breakpoints {
			bp := dap.Breakpoint{Id: a.id(fbp.Name), Verified: !a.rejected[fbp.Name]}
			if bp.Verified {
				bp.Source = &dap.Source{Path: "/src/main.go"}
				bp.Line = 3
			} else {
				bp.Message = "could not find function " + fbp.Name
			}
			bps = append(bps, bp)
		}
		return &dap.SetFunctionBreakpointsResponse{
			Response: newResponse(r),
			Body:     dap.SetFunctionBreakpointsResponseBody{Breakpoints: bps},
		}, true
	default:
		resp := newResponse(req)
		resp.Success = false
		resp.Message = "unsupported"
		return &dap.ErrorResponse{Response: resp}, true
	}
}
