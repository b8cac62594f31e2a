package main

import (
	"github.com/spf13/cobra"
)

var revertCmd = &cobra.Command{
	Use:   "revert <pointer>",
	Short: "Drop pending and saved deltas matching a package, section, or option",
	Args:  cobra.ExactArgs(1),
	Run:   runRevert,
}

func init() {
	rootCmd.AddCommand(revertCmd)
}

func runRevert(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}
	if _, err := ctx.Load(pointerPackage(args[0])); err != nil {
		die(err)
	}
	if err := ctx.Revert(args[0]); err != nil {
		die(err)
	}
}
