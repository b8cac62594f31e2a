package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/uci-go/uci/internal/uci/format"
)

var importCmd = &cobra.Command{
	Use:   "import [config]",
	Short: "Import config data from a file (-f) or stdin, optionally merging into an existing package",
	Args:  cobra.MaximumNArgs(1),
	Run:   runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}

	r, closeFn, err := openInput()
	if err != nil {
		die(err)
	}
	defer closeFn()

	opts := format.ImportOptions{Strict: ctx.Strict}
	if flagMerge {
		if len(args) == 0 {
			dieUsage("import --merge requires a package name")
		}
		pkg, err := ctx.Load(args[0])
		if err != nil {
			die(err)
		}
		opts.MergeInto = pkg
	} else if len(args) == 1 {
		opts.DefaultPackageName = args[0]
	}

	if _, err := ctx.Import(r, opts); err != nil {
		die(err)
	}
}

func openInput() (io.Reader, func() error, error) {
	if flagFile != "" {
		f, err := os.Open(flagFile)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
	return os.Stdin, func() error { return nil }, nil
}
