package main

import (
	"github.com/spf13/cobra"
)

var addListCmd = &cobra.Command{
	Use:   "add_list <pointer>=<value>",
	Short: "Append a value to a list option, creating or promoting it as needed",
	Args:  cobra.ExactArgs(1),
	Run:   runAddList,
}

func init() {
	rootCmd.AddCommand(addListCmd)
}

func runAddList(cmd *cobra.Command, args []string) {
	pointer, value, ok := splitAssignment(args[0])
	if !ok {
		dieUsage("expected <pointer>=<value>, got " + args[0])
	}

	ctx, err := buildContext()
	if err != nil {
		die(err)
	}
	if err := ctx.AddList(pointer, value); err != nil {
		die(err)
	}
	if err := ctx.Save(pointerPackage(pointer)); err != nil {
		die(err)
	}
}
