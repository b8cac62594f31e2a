package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/uci-go/uci/internal/uci/format"
)

var exportCmd = &cobra.Command{
	Use:   "export [config...]",
	Short: "Export one or more packages in canonical textual form",
	Run:   runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
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

	opts := format.ExportOptions{WithPackageName: true, ExportAnonNames: flagExportNames}
	for _, name := range names {
		if _, err := ctx.Load(name); err != nil {
			die(err)
		}
		if err := ctx.Export(os.Stdout, name, opts); err != nil {
			die(err)
		}
	}
}
