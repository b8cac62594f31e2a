package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <pointer>=<value>",
	Short: "Set the value of an option, or create/retype a section",
	Args:  cobra.ExactArgs(1),
	Run:   runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) {
	pointer, value, ok := splitAssignment(args[0])
	if !ok {
		dieUsage("expected <pointer>=<value>, got " + args[0])
	}

	ctx, err := buildContext()
	if err != nil {
		die(err)
	}
	if err := ctx.Set(pointer, value); err != nil {
		die(err)
	}
	if err := ctx.Save(pointerPackage(pointer)); err != nil {
		die(err)
	}
}

// splitAssignment splits "pointer=value" on the first '=', the same rule
// resolver.Parse applies to pointer strings carrying a value.
func splitAssignment(arg string) (pointer, value string, ok bool) {
	idx := strings.IndexByte(arg, '=')
	if idx < 0 {
		return "", "", false
	}
	return arg[:idx], arg[idx+1:], true
}

// pointerPackage returns the leading package component of a dotted pointer.
func pointerPackage(pointer string) string {
	if idx := strings.IndexByte(pointer, '.'); idx >= 0 {
		return pointer[:idx]
	}
	return pointer
}
