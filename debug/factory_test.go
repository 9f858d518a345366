package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/debug/script"
)

func TestNewDebuggerScript(t *testing.T) {
	var buf bytes.Buffer
	dbg, err := NewDebugger(context.Background(), "gdb", Options{Out: &buf})
	require.NoError(t, err)

	s, ok := dbg.(*script.Debugger)
	require.True(t, ok)
	assert.Equal(t, "gdb", s.Dialect().Name)

	_, err = dbg.CreateBreakpoint(context.Background(), common.FunctionDirective("main"))
	require.NoError(t, err)
	assert.Equal(t, "break main\n", buf.String())
}

func TestNewDebuggerErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewDebugger(ctx, "windbg", Options{})
	assert.EqualError(t, err, "unsupported debugger type: windbg")

	_, err = NewDebugger(ctx, TypeHeadless, Options{})
	assert.Error(t, err)

	_, err = NewDebugger(ctx, TypeDAP, Options{})
	assert.Error(t, err)

	_, err = NewDebugger(ctx, "lldb", Options{})
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"dap", "dlv", "gdb", "headless", "lldb"}, Types())
	assert.True(t, IsScript("lldb"))
	assert.False(t, IsScript(TypeHeadless))
}

func TestSessionArgs(t *testing.T) {
	ctx := context.Background()

	_, err := NewDebugger(ctx, TypeHeadless, Options{Addr: "127.0.0.1:1", Launch: json.RawMessage(`{}`)})
	assert.EqualError(t, err, "launch arguments require the dap debugger")

	_, err = NewDebugger(ctx, "gdb", Options{Out: &bytes.Buffer{}, Attach: json.RawMessage(`{"pid": 1}`)})
	assert.EqualError(t, err, "attach arguments require the dap debugger")

	_, err = NewDebugger(ctx, TypeDAP, Options{Addr: "127.0.0.1:1", Attach: json.RawMessage(`{`)})
	assert.EqualError(t, err, "attach arguments are not valid JSON")
}
