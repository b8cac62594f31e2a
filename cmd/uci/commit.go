package main

import (
	"github.com/spf13/cobra"
)

var commitOverwrite bool

var commitCmd = &cobra.Command{
	Use:   "commit [config...]",
	Short: "Merge pending and saved deltas into the canonical config files",
	Run:   runCommit,
}

func init() {
	commitCmd.Flags().BoolVar(&commitOverwrite, "overwrite", false, "write the in-memory package as-is, without re-reading the canonical file first")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}

	names := args
	if len(names) == 0 {
		names, err = ctx.ListConfigs()
		if err != nil {
			die(err)
		}
	}

	for _, name := range names {
		if _, err := ctx.Load(name); err != nil {
			die(err)
		}
		if err := ctx.Commit(name, commitOverwrite); err != nil {
			die(err)
		}
	}
}
