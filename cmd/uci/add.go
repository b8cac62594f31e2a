package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <config> <type>",
	Short: "Create a new, anonymous section of the given type and print its generated name",
	Args:  cobra.ExactArgs(2),
	Run:   runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}

	name, err := ctx.Add(args[0], args[1])
	if err != nil {
		die(err)
	}
	if err := ctx.Save(args[0]); err != nil {
		die(err)
	}
	fmt.Println(name)
}
