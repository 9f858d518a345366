package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/debug"
	"github.com/xhd2015/simple-debug/log"
	tools "github.com/xhd2015/simple-debug/tools/debug"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	var debuggerType string
	var addr string
	var logFile string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the breakpoint tools over MCP on stdio",
		Long: `Run an MCP server on stdio exposing locate_breakpoint_config,
validate_breakpoint_config and load_breakpoints. Logs are appended to
` + "`~/.simple-debug/simple-debug.log`" + ` because stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logFile == "" {
				var err error
				logFile, err = defaultLogFile()
				if err != nil {
					return err
				}
			}
			file, err := openLogFile(logFile)
			if err != nil {
				return err
			}
			defer file.Close()
			logger := log.New(file)

			s := server.NewMCPServer(
				"simple-debug",
				version,
				server.WithToolCapabilities(true),
			)

			if err := tools.RegisterTools(s, tools.ToolOptions{
				DebuggerType: debuggerType,
				Addr:         addr,
				Dir:          root.dir,
				Logger:       logger,
			}); err != nil {
				return err
			}

			logger.Infof("MCP server listening on stdio, debugger=%s addr=%s", debuggerType, addr)
			if err := server.ServeStdio(s); err != nil {
				logger.Errorf("server error: %v", err)
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&debuggerType, "debugger", envOr(envDebugger, debug.TypeHeadless), "default debugger type of load_breakpoints (env "+envDebugger+")")
	cmd.Flags().StringVar(&addr, "addr", envOr(envAddr, ""), "default debugger address of load_breakpoints (env "+envAddr+")")
	cmd.Flags().StringVar(&logFile, "log-file", "", "log file (default: ~/.simple-debug/simple-debug.log)")
	return cmd
}
