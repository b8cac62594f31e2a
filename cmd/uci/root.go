package main

import (
	"github.com/spf13/cobra"

	"github.com/uci-go/uci/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "uci",
	Short: "uci - Unified Configuration Interface",
	Long: `uci reads and writes the package/section/option configuration tree
kept under a config directory, queuing changes in per-package delta logs
until they are committed back to the canonical files.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.SetVersionTemplate("uci version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagConfDir, "confdir", "c", "", "set the configuration directory (default /etc/config)")
	flags.StringArrayVarP(&flagSearchPaths, "savedir", "p", nil, "add a directory to the delta/save-file search path (repeatable; additive)")
	flags.StringVarP(&flagSaveDirExclusive, "savedir-exclusive", "P", "", "like -p, and also becomes the directory new save files are written to")
	flags.BoolVarP(&flagStrict, "strict", "s", false, "force strict mode: abort import on the first parse error")
	flags.BoolVarP(&flagLenient, "lenient", "S", false, "disable strict mode: skip malformed lines instead of aborting")
	flags.BoolVarP(&flagExportNames, "name-anon", "n", true, "name unnamed sections on export (default)")
	flags.BoolVarP(&flagNoExportNames, "no-name-anon", "N", false, "don't name unnamed sections on export")
	flags.BoolVarP(&flagQuiet, "quiet", "q", false, "quiet mode: suppress error messages")
	flags.BoolVarP(&flagMerge, "merge", "m", false, "merge imported data into an existing package instead of replacing it")
	flags.StringVarP(&flagFile, "file", "f", "", "read input from <file> instead of stdin")
}

func persistentPreRun(cmd *cobra.Command, args []string) error {
	if flagSaveDirExclusive != "" {
		flagSaveDir = flagSaveDirExclusive
		flagSearchPaths = append(flagSearchPaths, flagSaveDirExclusive)
	}
	if flagLenient {
		flagStrict = false
	}
	if flagNoExportNames {
		flagExportNames = false
	}
	return nil
}
