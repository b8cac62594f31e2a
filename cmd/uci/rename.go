package main

import (
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <pointer>=<newname>",
	Short: "Rename a section or an option",
	Args:  cobra.ExactArgs(1),
	Run:   runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) {
	pointer, newName, ok := splitAssignment(args[0])
	if !ok {
		dieUsage("expected <pointer>=<newname>, got " + args[0])
	}

	ctx, err := buildContext()
	if err != nil {
		die(err)
	}
	if err := ctx.Rename(pointer, newName); err != nil {
		die(err)
	}
	if err := ctx.Save(pointerPackage(pointer)); err != nil {
		die(err)
	}
}
