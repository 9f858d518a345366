package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/breakpoints"
	"github.com/xhd2015/simple-debug/debug"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/log"
)

// sessionOptions are the flags of subcommands that talk to a live debugger.
type sessionOptions struct {
	debuggerType string
	addr         string
	launch       string
	attach       string
}

func (o *sessionOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.debuggerType, "debugger", envOr(envDebugger, debug.TypeHeadless), "debugger type: 'headless' or 'dap' (env "+envDebugger+")")
	cmd.Flags().StringVar(&o.addr, "addr", envOr(envAddr, ""), "host:port of the debugger server (env "+envAddr+")")
	cmd.Flags().StringVar(&o.launch, "launch", "", "dap only: JSON arguments of the launch request")
	cmd.Flags().StringVar(&o.attach, "attach", "", "dap only: JSON arguments of the attach request")
}

func (o *sessionOptions) open(ctx context.Context, logger log.Logger) (common.Debugger, error) {
	if debug.IsScript(o.debuggerType) {
		return nil, fmt.Errorf("%s is a script dialect, use 'simple-debug script --dialect %s'", o.debuggerType, o.debuggerType)
	}
	opts := debug.Options{
		Addr:   o.addr,
		Logger: logger,
	}
	if o.launch != "" {
		opts.Launch = json.RawMessage(o.launch)
	}
	if o.attach != "" {
		opts.Attach = json.RawMessage(o.attach)
	}
	return debug.NewDebugger(ctx, o.debuggerType, opts)
}

func newApplyCmd(root *rootOptions) *cobra.Command {
	opts := &sessionOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Set the configured breakpoints on a running debugger",
		Long: `Set the breakpoints of the nearest .simple-debug.json on a running
debugger and print the debugger's breakpoint list.

Examples:
  dlv debug --headless --listen 127.0.0.1:4040 --accept-multiclient
  simple-debug apply --addr 127.0.0.1:4040

  dlv dap --listen 127.0.0.1:4041
  simple-debug apply --debugger dap --addr 127.0.0.1:4041 --launch '{"mode":"debug","program":"."}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := root.logger(cmd)

			dbg, err := opts.open(ctx, logger)
			if err != nil {
				return err
			}
			defer dbg.Close()

			res, err := applyOnce(ctx, dbg, root, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			if d, ok := dbg.(common.ConfigurationDoner); ok {
				if err := d.ConfigurationDone(ctx); err != nil {
					return fmt.Errorf("configurationDone: %w", err)
				}
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d of %d breakpoint(s) were rejected", len(res.Failed), len(res.Directives))
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// applyOnce runs one locate and apply cycle and prints a summary.
func applyOnce(ctx context.Context, dbg common.Debugger, root *rootOptions, out io.Writer, logger log.Logger) (*breakpoints.Result, error) {
	res, err := breakpoints.Load(ctx, dbg, breakpoints.Options{
		StartDir: root.dir,
		Out:      out,
		Logger:   logger,
	})
	if err != nil {
		return res, err
	}
	printSummary(out, res)
	return res, nil
}

func printSummary(w io.Writer, res *breakpoints.Result) {
	if !res.Found() {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "%s %d breakpoint(s) set\n", green("✓"), len(res.Created))
	for _, f := range res.Failed {
		fmt.Fprintf(w, "%s %s: %v\n", red("✗"), f.Directive, f.Err)
	}
}
