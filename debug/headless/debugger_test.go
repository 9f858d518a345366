package headless

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhd2015/simple-debug/debug/common"
)

type fakeRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	Id     int               `json:"id"`
}

type fakeResponse struct {
	Id     int         `json:"id"`
	Result interface{} `json:"result"`
	Error  interface{} `json:"error"`
}

// fakeDelve answers the subset of RPCServer methods the debugger uses,
// encoding errors as plain strings like net/rpc/jsonrpc does.
type fakeDelve struct {
	ln       net.Listener
	mu       sync.Mutex
	locExprs []string
	cleared  []int
	bps      []*api.Breakpoint
	unknown  map[string]bool

	// dropFirst closes the first accepted connection without answering
	dropFirst bool
	accepted  int

	// hang reads requests without ever answering them
	hang bool
}

func startFakeDelve(t *testing.T) *fakeDelve {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeDelve{ln: ln, unknown: map[string]bool{}}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeDelve) addr() string {
	return f.ln.Addr().String()
}

func (f *fakeDelve) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.accepted++
		drop := f.dropFirst && f.accepted == 1
		f.mu.Unlock()
		go f.handle(conn, drop)
	}
}

func (f *fakeDelve) handle(conn net.Conn, drop bool) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req fakeRequest
		if err := dec.Decode(&req); err != nil {
			return
		}
		if drop {
			return
		}
		f.mu.Lock()
		hang := f.hang
		f.mu.Unlock()
		if hang {
			continue
		}
		result, errMsg := f.answer(req)
		resp := fakeResponse{Id: req.Id, Result: result}
		if errMsg != "" {
			resp.Result = nil
			resp.Error = errMsg
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (f *fakeDelve) answer(req fakeRequest) (interface{}, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch RPCMethod(req.Method) {
	case RPCState:
		return rpc2.StateOut{State: &api.DebuggerState{}}, ""
	case RPCCreateBreakpoint:
		var in rpc2.CreateBreakpointIn
		if err := json.Unmarshal(req.Params[0], &in); err != nil {
			return nil, err.Error()
		}
		f.locExprs = append(f.locExprs, in.LocExpr)
		if f.unknown[in.LocExpr] {
			return nil, "location \"" + in.LocExpr + "\" not found"
		}
		bp := &api.Breakpoint{ID: len(f.bps) + 1, FunctionName: "main." + in.LocExpr, File: "/src/main.go", Line: 3}
		if i := strings.LastIndex(in.LocExpr, ":"); i >= 0 {
			line, err := strconv.Atoi(in.LocExpr[i+1:])
			if err != nil {
				return nil, err.Error()
			}
			bp.FunctionName = ""
			bp.File = "/src/" + in.LocExpr[:i]
			bp.Line = line
		}
		f.bps = append(f.bps, bp)
		return rpc2.CreateBreakpointOut{Breakpoint: *bp}, ""
	case RPCListBreakpoints:
		all := append([]*api.Breakpoint{{ID: -1, Name: "unrecovered-panic", FunctionName: "runtime.fatalpanic"}}, f.bps...)
		return rpc2.ListBreakpointsOut{Breakpoints: all}, ""
	case RPCClearBreakpoint:
		var in rpc2.ClearBreakpointIn
		if err := json.Unmarshal(req.Params[0], &in); err != nil {
			return nil, err.Error()
		}
		f.cleared = append(f.cleared, in.Id)
		return rpc2.ClearBreakpointOut{}, ""
	default:
		return nil, "unknown method " + req.Method
	}
}

func TestDebuggerCreateAndList(t *testing.T) {
	f := startFakeDelve(t)
	f.mu.Lock()
	f.unknown["nosuch"] = true
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := Dial(ctx, f.addr(), nil)
	require.NoError(t, err)
	defer d.Close()

	id, err := d.CreateBreakpoint(ctx, common.LineDirective("a.c", 10))
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = d.CreateBreakpoint(ctx, common.FunctionDirective("foo"))
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	_, err = d.CreateBreakpoint(ctx, common.FunctionDirective("nosuch"))
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Contains(t, rpcErr.Message, "not found")

	listing, err := d.ListBreakpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Breakpoints:\n"+
		"1: /src/a.c:10 (enabled)\n"+
		"2: main.foo /src/main.go:3 (enabled)\n", listing)

	require.NoError(t, d.ClearBreakpoint(ctx, 2))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"a.c:10", "foo", "nosuch"}, f.locExprs)
	assert.Equal(t, []int{2}, f.cleared)
}

func TestClientReconnects(t *testing.T) {
	f := startFakeDelve(t)
	f.mu.Lock()
	f.dropFirst = true
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewClient(nil)
	require.NoError(t, c.Connect(ctx, f.addr()))
	defer c.Close()

	out, err := SendHeadlessClientRequest[rpc2.StateOut](ctx, c, RPCState, rpc2.StateIn{NonBlocking: true})
	require.NoError(t, err)
	assert.NotNil(t, out.State)
}

func TestClientClosed(t *testing.T) {
	f := startFakeDelve(t)

	c := NewClient(nil)
	require.NoError(t, c.Connect(context.Background(), f.addr()))
	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())

	_, err := SendHeadlessClientRequest[rpc2.StateOut](context.Background(), c, RPCState, rpc2.StateIn{})
	assert.EqualError(t, err, "client is closed")
}

func TestDialFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, nil)
	assert.Error(t, err)
}

func TestErrorMessageForms(t *testing.T) {
	r := jsonRPCResponse{Error: json.RawMessage(`"boom"`)}
	assert.Equal(t, "boom", r.errorMessage())

	r = jsonRPCResponse{Error: json.RawMessage(`{"code": 1, "message": "bang"}`)}
	assert.Equal(t, "bang", r.errorMessage())

	r = jsonRPCResponse{Error: json.RawMessage(`null`)}
	assert.Empty(t, r.errorMessage())
}

func TestClientCanceledWhileWaiting(t *testing.T) {
	f := startFakeDelve(t)
	f.mu.Lock()
	f.hang = true
	f.mu.Unlock()

	c := NewClient(nil)
	require.NoError(t, c.Connect(context.Background(), f.addr()))
	defer c.Close()

	// no deadline, like a signal context
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := SendHeadlessClientRequest[rpc2.StateOut](ctx, c, RPCState, rpc2.StateIn{NonBlocking: true})
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not interrupted by cancel")
	}

	f.mu.Lock()
	f.hang = false
	f.mu.Unlock()

	out, err := SendHeadlessClientRequest[rpc2.StateOut](context.Background(), c, RPCState, rpc2.StateIn{NonBlocking: true})
	require.NoError(t, err)
	assert.NotNil(t, out.State)
}
