package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uci-go/uci/internal/uci/model"
)

var getCmd = &cobra.Command{
	Use:   "get <pointer>",
	Short: "Read the value of an option, or the type of a section",
	Args:  cobra.ExactArgs(1),
	Run:   runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}

	ref, err := ctx.Get(args[0])
	if err != nil {
		die(err)
	}

	switch {
	case ref.Option != nil:
		printOption(ref.Option)
	case ref.Section != nil:
		fmt.Println(ref.Section.Type)
	default:
		die(fmt.Errorf("not found: %s", args[0]))
	}
}

func printOption(o *model.Option) {
	switch o.Kind {
	case model.Scalar:
		fmt.Println(o.Scalar)
	case model.List:
		for _, v := range o.List {
			fmt.Println(v)
		}
	}
}
