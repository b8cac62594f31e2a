package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/uci-go/uci/internal/logging"
	"github.com/uci-go/uci/internal/uci"
	"github.com/uci-go/uci/internal/uci/backend"
	"github.com/uci-go/uci/internal/uciconfig"
	"github.com/uci-go/uci/internal/ucihistory"
)

// Exit codes, per the confdir/pointer error distinction a uci invocation
// needs to report to a calling script: 0 success, 1 the requested operation
// failed, 255 the command line itself was invalid.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 255
)

var (
	flagConfDir          string
	flagSaveDir          string
	flagSearchPaths      []string
	flagSaveDirExclusive string
	flagStrict           bool
	flagLenient          bool
	flagExportNames      bool
	flagNoExportNames    bool
	flagQuiet            bool
	flagMerge            bool
	flagFile             string
)

// buildContext assembles a *uci.Context from the resolved tool configuration
// and the process-wide flags, registering a single file backend as the
// default. A multi-backend manifest at <confdir>/backends.toml registers
// further backends when present.
func buildContext() (*uci.Context, error) {
	loaded, err := uciconfig.LoadToolConfig(confDirForManifestLookup())
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config

	confDir := cfg.ConfDir
	if flagConfDir != "" {
		confDir = flagConfDir
	}
	saveDir := cfg.SaveDir
	if flagSaveDir != "" {
		saveDir = flagSaveDir
	}

	quiet := cfg.Quiet || flagQuiet
	flagQuiet = quiet
	logger := buildLogger(quiet)

	fb := backend.NewFileBackend(confDir, saveDir)
	fb.SearchPaths = flagSearchPaths
	reg := backend.NewRegistry()
	reg.Register(fb)

	if manifestPath := confDir + "/backends.toml"; fileReadable(manifestPath) {
		manifest, merr := uciconfig.LoadBackendManifest(manifestPath)
		if merr == nil {
			for _, entry := range manifest.Backends {
				reg.Register(backend.NewFileBackend(entry.ConfDir, entry.SaveDir))
			}
			if manifest.Default != "" {
				_ = reg.SetDefault(manifest.Default)
			}
		}
	}

	ctx := uci.New(reg, logger)
	ctx.SearchPaths = flagSearchPaths
	ctx.Strict = cfg.Strict || flagStrict
	if flagLenient {
		ctx.Strict = false
	}
	ctx.ExportAnonNames = flagExportNames

	if cfg.SavedHistory {
		store, herr := ucihistory.Open(saveDir, logger)
		if herr == nil {
			ctx.History = store
			ctx.SavedHistory = true
		} else {
			logger.Warn("opening history store failed, continuing without history", "error", herr)
		}
	}

	return ctx, nil
}

func confDirForManifestLookup() string {
	if flagConfDir != "" {
		return flagConfDir
	}
	return uciconfig.DefaultConfDir
}

func fileReadable(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// buildLogger returns a stderr text logger at warn level, or a logger that
// discards everything when quiet mode is active.
func buildLogger(quiet bool) *slog.Logger {
	if quiet {
		return logging.NewDiscardLogger()
	}
	return logging.NewLogger(os.Stderr, logging.LevelFromVerbosity(0, false))
}

// die prints err to stderr (unless quiet) and exits with exitError.
func die(err error) {
	if !flagQuiet {
		fmt.Fprintln(os.Stderr, "uci:", err)
	}
	os.Exit(exitError)
}

// dieUsage prints msg to stderr (unless quiet) and exits with exitUsage.
func dieUsage(msg string) {
	if !flagQuiet {
		fmt.Fprintln(os.Stderr, "uci:", msg)
	}
	os.Exit(exitUsage)
}
