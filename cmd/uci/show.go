package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uci-go/uci/internal/uci/model"
)

var showCmd = &cobra.Command{
	Use:   "show [pointer...]",
	Short: "Print config data as dotted package.section[.option]=value assignments",
	Run:   runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) {
	ctx, err := buildContext()
	if err != nil {
		die(err)
	}

	pointers := args
	if len(pointers) == 0 {
		names, err := ctx.ListConfigs()
		if err != nil {
			die(err)
		}
		pointers = names
	}

	for _, pointer := range pointers {
		name := pointerPackage(pointer)
		pkg, err := ctx.Load(name)
		if err != nil {
			die(err)
		}
		showPackage(pkg)
	}
}

func showPackage(pkg *model.Package) {
	for _, s := range pkg.Sections {
		fmt.Printf("%s.%s=%s\n", pkg.Name, s.Name, s.Type)
		for _, o := range s.Options {
			switch o.Kind {
			case model.Scalar:
				fmt.Printf("%s.%s.%s='%s'\n", pkg.Name, s.Name, o.Name, escapeShow(o.Scalar))
			case model.List:
				fmt.Printf("%s.%s.%s=", pkg.Name, s.Name, o.Name)
				items := make([]string, len(o.List))
				for i, v := range o.List {
					items[i] = "'" + escapeShow(v) + "'"
				}
				fmt.Println(strings.Join(items, " "))
			}
		}
	}
}

func escapeShow(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
