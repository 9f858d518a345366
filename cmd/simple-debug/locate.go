package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/config"
)

func newLocateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the path of the nearest " + config.FileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Locate(root.dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
