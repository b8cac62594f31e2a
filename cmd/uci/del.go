package main

import (
	"github.com/spf13/cobra"
)

var delCmd = &cobra.Command{
	Use:   "del <pointer>",
	Short: "Delete an option or a section",
	Args:  cobra.ExactArgs(1),
	Run:   runDel,
}

func init() {
	rootCmd.AddCommand(delCmd)
}

func runDel(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}
	if err := ctx.Delete(args[0]); err != nil {
		die(err)
	}
	if err := ctx.Save(pointerPackage(args[0])); err != nil {
		die(err)
	}
}
