package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/breakpoints"
	"github.com/xhd2015/simple-debug/config"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the nearest " + config.FileName + " without contacting a debugger",
		Long: `Locate and parse the nearest .simple-debug.json and list the breakpoint
directives it would produce, in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Locate(root.dir)
			if err != nil {
				return err
			}

			groups, err := config.Load(path)
			if err != nil {
				var parseErr *config.ParseError
				if errors.As(err, &parseErr) && len(parseErr.Problems) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Invalid:"), path)
					for _, p := range parseErr.Problems {
						fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
					}
					return fmt.Errorf("validation failed")
				}
				return err
			}

			directives := breakpoints.Plan(groups, root.logger(cmd))
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d breakpoint(s))\n", color.GreenString("Valid:"), path, len(directives))
			for _, d := range directives {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", d)
			}
			return nil
		},
	}
}
