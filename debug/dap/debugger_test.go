package dap

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/debug/dap/daptest"
)

func TestDebuggerLaunchAndBreakpoints(t *testing.T) {
	adapter := daptest.Start(t)
	adapter.RejectFunction("nosuch")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := Dial(ctx, adapter.Addr(), Options{
		BaseDir: "/proj",
		Launch:  json.RawMessage(`{"mode":"exec","program":"./app"}`),
	})
	require.NoError(t, err)
	defer d.Close()

	id1, err := d.CreateBreakpoint(ctx, common.LineDirective("a.c", 1))
	require.NoError(t, err)
	id2, err := d.CreateBreakpoint(ctx, common.FunctionDirective("foo"))
	require.NoError(t, err)
	id3, err := d.CreateBreakpoint(ctx, common.LineDirective("a.c", 5))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{id1, id2, id3})

	_, err = d.CreateBreakpoint(ctx, common.FunctionDirective("nosuch"))
	assert.ErrorContains(t, err, "could not find function nosuch")

	require.NoError(t, d.ConfigurationDone(ctx))

	listing, err := d.ListBreakpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Breakpoints:\n"+
		"1: /proj/a.c:1 (enabled)\n"+
		"3: /proj/a.c:5 (enabled)\n"+
		"2: foo /src/main.go:3 (enabled)\n", listing)

	require.NoError(t, d.ClearBreakpoint(ctx, 1))
	assert.Error(t, d.ClearBreakpoint(ctx, 4), "unverified breakpoint is no longer requested")
	assert.Error(t, d.ClearBreakpoint(ctx, 99))

	listing, err = d.ListBreakpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Breakpoints:\n"+
		"3: /proj/a.c:5 (enabled)\n"+
		"2: foo /src/main.go:3 (enabled)\n", listing)

	assert.Equal(t, []string{
		"initialize", "launch",
		"setBreakpoints", "setFunctionBreakpoints", "setBreakpoints",
		"setFunctionBreakpoints", "setFunctionBreakpoints",
		"configurationDone",
		"setBreakpoints",
	}, adapter.Commands())
	assert.JSONEq(t, `{"mode":"exec","program":"./app"}`, string(adapter.LaunchArgs()))
}

func TestUnverifiedNotResent(t *testing.T) {
	adapter := daptest.Start(t)
	adapter.RejectFunction("nosuch")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := Dial(ctx, adapter.Addr(), Options{})
	require.NoError(t, err)
	defer d.Close()

	for i := 0; i < 3; i++ {
		_, err := d.CreateBreakpoint(ctx, common.FunctionDirective("nosuch"))
		require.Error(t, err)
	}
	_, err = d.CreateBreakpoint(ctx, common.FunctionDirective("foo"))
	require.NoError(t, err)

	assert.Equal(t, []string{"foo"}, d.functions)
	listing, err := d.ListBreakpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Breakpoints:\n"+
		"2: foo /src/main.go:3 (enabled)\n", listing)
}

func TestSetBaseDir(t *testing.T) {
	adapter := daptest.Start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := Dial(ctx, adapter.Addr(), Options{BaseDir: "/elsewhere"})
	require.NoError(t, err)
	defer d.Close()

	d.SetBaseDir("/proj")
	_, err = d.CreateBreakpoint(ctx, common.LineDirective("src/a.c", 3))
	require.NoError(t, err)
	_, err = d.CreateBreakpoint(ctx, common.LineDirective("/abs/b.c", 4))
	require.NoError(t, err)

	assert.Equal(t, []string{"/proj/src/a.c", "/abs/b.c"}, adapter.Sources())
}

func TestErrorResponse(t *testing.T) {
	adapter := daptest.Start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, adapter.Addr(), nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.send(ctx, &dap.ThreadsRequest{Request: client.newRequest("threads")})
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "threads", respErr.Command)
	assert.Equal(t, "unsupported", respErr.Message)
}

func TestSendCanceledWhileWaiting(t *testing.T) {
	adapter := daptest.Start(t)
	adapter.Hang("threads")

	client, err := Connect(context.Background(), adapter.Addr(), nil)
	require.NoError(t, err)
	defer client.Close()

	// no deadline, like a signal context
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := client.send(ctx, &dap.ThreadsRequest{Request: client.newRequest("threads")})
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not interrupted by cancel")
	}
	assert.True(t, client.IsClosed())
}

func TestClosedClient(t *testing.T) {
	adapter := daptest.Start(t)

	client, err := Connect(context.Background(), adapter.Addr(), nil)
	require.NoError(t, err)
	require.NoError(t, client.Close())
	assert.True(t, client.IsClosed())

	_, err = client.Initialize(context.Background())
	assert.EqualError(t, err, "client is closed")
}
