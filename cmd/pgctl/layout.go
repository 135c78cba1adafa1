package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show segments and free counts",
		Long: `The layout command builds the machine described by the global flags
and prints every segment with its range, class, free pages and hint.

Example:
  pgctl layout --segment 0x0-1M:first16m --segment 16M-32M
  pgctl layout --fragment 4 --cache 16 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout()
		},
	}
}

func runLayout() error {
	mc, err := buildMachine()
	if err != nil {
		return err
	}
	defer mc.Close()

	if quiet && !jsonOut {
		return nil
	}
	return newPrinter(os.Stdout).PrintLayout(mc.Manager)
}
