package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xhd2015/simple-debug/breakpoints"
	"github.com/xhd2015/simple-debug/config"
	"github.com/xhd2015/simple-debug/debug"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/log"
)

// ToolOptions holds the defaults used when a tool call leaves a parameter
// out.
type ToolOptions struct {
	DebuggerType string
	Addr         string
	Dir          string
	Logger       log.Logger
}

// RegisterTools registers the breakpoint tools with the MCP server
func RegisterTools(s *server.MCPServer, opts ToolOptions) error {
	if opts.DebuggerType == "" {
		opts.DebuggerType = debug.TypeHeadless
	}
	if !isKnownType(opts.DebuggerType) {
		return fmt.Errorf("unsupported debugger type: %s", opts.DebuggerType)
	}
	opts.Logger = log.OrNop(opts.Logger)

	registerLocateTool(s, opts)
	registerValidateTool(s, opts)
	registerLoadTool(s, opts)
	return nil
}

func isKnownType(t string) bool {
	for _, known := range debug.Types() {
		if known == t {
			return true
		}
	}
	return false
}

func stringArg(request mcp.CallToolRequest, name string, def string) string {
	if v, ok := request.Params.Arguments[name].(string); ok && v != "" {
		return v
	}
	return def
}

// registerLocateTool registers the locate_breakpoint_config tool
func registerLocateTool(s *server.MCPServer, opts ToolOptions) {
	tool := mcp.NewTool("locate_breakpoint_config",
		mcp.WithDescription("Find the nearest "+config.FileName+" in a directory or its parents"),
		mcp.WithString("dir",
			mcp.Description("Directory to start searching from (default: server working directory)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir := stringArg(request, "dir", opts.Dir)
		opts.Logger.Infof("locate_breakpoint_config: dir=%s", dir)

		path, err := config.Locate(dir)
		if errors.Is(err, config.ErrNotFound) {
			return mcp.NewToolResultText(fmt.Sprintf("No %s found in %s or its parents", config.FileName, displayDir(dir))), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to locate %s: %v", config.FileName, err)), nil
		}
		return mcp.NewToolResultText(path), nil
	})
}

// registerValidateTool registers the validate_breakpoint_config tool
func registerValidateTool(s *server.MCPServer, opts ToolOptions) {
	tool := mcp.NewTool("validate_breakpoint_config",
		mcp.WithDescription("Parse the nearest "+config.FileName+" and show the breakpoints it would set"),
		mcp.WithString("dir",
			mcp.Description("Directory to start searching from (default: server working directory)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir := stringArg(request, "dir", opts.Dir)
		opts.Logger.Infof("validate_breakpoint_config: dir=%s", dir)

		path, err := config.Locate(dir)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to locate %s: %v", config.FileName, err)), nil
		}
		groups, err := config.Load(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		directives := breakpoints.Plan(groups, opts.Logger)
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %d breakpoint(s)\n", path, len(directives))
		for _, d := range directives {
			fmt.Fprintf(&b, "  %s\n", d)
		}
		return mcp.NewToolResultText(b.String()), nil
	})
}

// registerLoadTool registers the load_breakpoints tool
func registerLoadTool(s *server.MCPServer, opts ToolOptions) {
	tool := mcp.NewTool("load_breakpoints",
		mcp.WithDescription("Apply the breakpoints of the nearest "+config.FileName+" to a debugger. "+
			"'headless' and 'dap' connect to a running server at addr; "+
			"'dap' sends launch or attach first and configurationDone after the breakpoints, "+
			"and the DAP session ends when the call returns; "+
			"'lldb', 'gdb' and 'dlv' return a command script to source in that debugger"),
		mcp.WithString("dir",
			mcp.Description("Directory to start searching from (default: server working directory)"),
		),
		mcp.WithString("debugger",
			mcp.Description("Debugger type: "+strings.Join(debug.Types(), ", ")+" (default: "+opts.DebuggerType+")"),
			mcp.Enum(debug.Types()...),
		),
		mcp.WithString("addr",
			mcp.Description("host:port of the headless or DAP server"),
		),
		mcp.WithString("launch",
			mcp.Description(`dap only: JSON arguments of the launch request, e.g. {"mode":"debug","program":"."}`),
		),
		mcp.WithString("attach",
			mcp.Description(`dap only: JSON arguments of the attach request, e.g. {"mode":"local","processId":1234}`),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir := stringArg(request, "dir", opts.Dir)
		debuggerType := stringArg(request, "debugger", opts.DebuggerType)
		addr := stringArg(request, "addr", opts.Addr)
		opts.Logger.Infof("load_breakpoints: dir=%s debugger=%s addr=%s", dir, debuggerType, addr)

		var scriptOut bytes.Buffer
		debugOpts := debug.Options{
			Addr:   addr,
			Out:    &scriptOut,
			Logger: opts.Logger,
		}
		if launch := stringArg(request, "launch", ""); launch != "" {
			debugOpts.Launch = json.RawMessage(launch)
		}
		if attach := stringArg(request, "attach", ""); attach != "" {
			debugOpts.Attach = json.RawMessage(attach)
		}
		dbg, err := debug.NewDebugger(ctx, debuggerType, debugOpts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to open %s debugger: %v", debuggerType, err)), nil
		}
		defer dbg.Close()

		var messages bytes.Buffer
		res, err := breakpoints.Load(ctx, dbg, breakpoints.Options{
			StartDir: dir,
			Out:      &messages,
			Logger:   opts.Logger,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load breakpoints: %v", err)), nil
		}
		if d, ok := dbg.(common.ConfigurationDoner); ok {
			if err := d.ConfigurationDone(ctx); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to finish configuration: %v", err)), nil
			}
		}

		return mcp.NewToolResultText(formatResult(res, messages.String(), scriptOut.String())), nil
	})
}

func formatResult(res *breakpoints.Result, messages string, script string) string {
	var b strings.Builder
	b.WriteString(messages)
	if len(res.Failed) > 0 {
		b.WriteString("\nRejected by the debugger:\n")
		for _, f := range res.Failed {
			fmt.Fprintf(&b, "  %s: %v\n", f.Directive, f.Err)
		}
	}
	if script != "" {
		b.WriteString("\nCommand script:\n")
		b.WriteString(script)
	}
	return b.String()
}

func displayDir(dir string) string {
	if dir == "" {
		return "the working directory"
	}
	return dir
}
