package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uci-go/uci/internal/uci/delta"
	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/ucihistory"
)

var flagChangesAll bool

var changesCmd = &cobra.Command{
	Use:   "changes [config...]",
	Short: "List pending and saved deltas for one or more packages",
	Run:   runChanges,
}

func init() {
	changesCmd.Flags().BoolVar(&flagChangesAll, "all", false, "report the durable history log instead of the current pending/saved deltas, surviving past save-file rewrites (requires saved_history in the tool config)")
	rootCmd.AddCommand(changesCmd)
}

func runChanges(cmd *cobra.Command, args []string) {
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

	if flagChangesAll {
		store, ok := ctx.History.(*ucihistory.Store)
		if !ok {
			dieUsage("--all requires saved_history to be enabled in the tool config")
		}
		for _, name := range names {
			records, err := store.List(ucihistory.ListOptions{Package: name})
			if err != nil {
				die(err)
			}
			for _, r := range records {
				fmt.Println(r.Line)
			}
		}
		return
	}

	for _, name := range names {
		pkg, err := ctx.Load(name)
		if err != nil {
			die(err)
		}
		printChanges(pkg)
	}
}

func printChanges(pkg *model.Package) {
	for _, e := range pkg.SavedDeltas {
		printDeltaLine(pkg.Name, e)
	}
	for _, e := range pkg.PendingDeltas {
		printDeltaLine(pkg.Name, e)
	}
}

func printDeltaLine(pkgName string, e model.DeltaEntry) {
	line, err := delta.Encode(pkgName, e)
	if err != nil {
		return
	}
	fmt.Println(line)
}
