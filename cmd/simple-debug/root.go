package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/config"
	"github.com/xhd2015/simple-debug/log"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	dir     string
	verbose bool
	noColor bool
}

func (o *rootOptions) logger(cmd *cobra.Command) log.Logger {
	if !o.verbose {
		return log.Nop()
	}
	return log.New(cmd.ErrOrStderr())
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "simple-debug",
		Short: "Load breakpoints from " + config.FileName + " into a debugger",
		Long: `simple-debug finds the nearest ` + config.FileName + ` in the current
directory or its parents and sets the breakpoints it lists, either on a
running debugger (Delve headless, any DAP adapter) or as a command script
for lldb, gdb or dlv.

Example ` + config.FileName + `:
  [
    {"file": "main.c", "breakpoints": [{"line": 10}, {"function": "foo"}]}
  ]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "directory to start searching from (default: working directory)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newApplyCmd(opts),
		newScriptCmd(opts),
		newLocateCmd(opts),
		newValidateCmd(opts),
		newWatchCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
