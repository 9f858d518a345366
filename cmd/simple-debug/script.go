package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/breakpoints"
	"github.com/xhd2015/simple-debug/debug"
	"github.com/xhd2015/simple-debug/debug/script"
)

func newScriptCmd(root *rootOptions) *cobra.Command {
	var dialect string
	var output string

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the configured breakpoints as debugger commands",
		Long: `Render the breakpoints of the nearest .simple-debug.json as a command
script for lldb, gdb or dlv. Messages go to stderr so stdout carries only
the script.

Examples:
  simple-debug script -o /tmp/bp.lldb && lldb -s /tmp/bp.lldb ./prog
  simple-debug script --dialect gdb -o /tmp/bp.gdb && gdb -x /tmp/bp.gdb ./prog
  dlv debug --init <(simple-debug script --dialect dlv)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !debug.IsScript(dialect) {
				return fmt.Errorf("unknown dialect %q, expected one of: %s", dialect, strings.Join(script.Names(), ", "))
			}

			// hide Close so stdout stays open
			var out io.Writer = struct{ io.Writer }{cmd.OutOrStdout()}
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				out = f
			}

			ctx := cmd.Context()
			logger := root.logger(cmd)
			dbg, err := debug.NewDebugger(ctx, dialect, debug.Options{Out: out, Logger: logger})
			if err != nil {
				if c, ok := out.(io.Closer); ok {
					c.Close()
				}
				return err
			}

			res, err := breakpoints.Load(ctx, dbg, breakpoints.Options{
				StartDir: root.dir,
				Out:      cmd.ErrOrStderr(),
				Logger:   logger,
			})
			closeErr := dbg.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}
			if output != "" && res.Found() {
				lines := 0
				if s, ok := dbg.(*script.Debugger); ok {
					lines = s.Lines()
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %d command(s) to %s\n", color.GreenString("✓"), lines, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", envOr(envDialect, script.DefaultDialect), "command dialect: "+strings.Join(script.Names(), ", ")+" (env "+envDialect+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the script to a file instead of stdout")
	return cmd
}
