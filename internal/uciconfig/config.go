// Package uciconfig loads process-wide defaults for the uci CLI and
// library entry points: confdir/savedir/strict/export-name flags (viper,
// with environment-variable overrides) and the optional multi-backend
// manifest (a hand-authored TOML file, decoded directly with no viper
// layer).
package uciconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// DefaultConfDir and DefaultSaveDir are the stock confdir/savedir pair used
// when nothing overrides them.
const (
	DefaultConfDir = "/etc/config"
	DefaultSaveDir = "/tmp/.uci"
)

// ToolConfig holds the context-wide flags strict, quiet, export_name and
// saved_history, plus the confdir/savedir pair. The uci CLI applies all of
// them except ExportNames: its export-name setting comes from the -n/-N
// flags only.
type ToolConfig struct {
	ConfDir      string `mapstructure:"confdir"`
	SaveDir      string `mapstructure:"savedir"`
	Strict       bool   `mapstructure:"strict"`
	Quiet        bool   `mapstructure:"quiet"`
	ExportNames  bool   `mapstructure:"exportNames"`
	SavedHistory bool   `mapstructure:"savedHistory"`
}

// DefaultToolConfig returns the stock defaults.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{ConfDir: DefaultConfDir, SaveDir: DefaultSaveDir}
}

// LoadResult reports how a ToolConfig was produced: the config path used,
// whether defaults were substituted, and which environment overrides
// applied.
type LoadResult struct {
	Config       *ToolConfig
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []string
}

// LoadToolConfig reads "uci.toml"/"uci.yaml"/"uci.json" (viper picks whichever
// exists) from configDir, falling back to DefaultToolConfig if none is
// found, then applies UCI_* environment variable overrides.
func LoadToolConfig(configDir string) (*LoadResult, error) {
	result := &LoadResult{}

	v := viper.New()
	v.SetDefault("confdir", DefaultConfDir)
	v.SetDefault("savedir", DefaultSaveDir)
	v.SetConfigName("uci")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			result.Config = DefaultToolConfig()
			result.UsedDefaults = true
		} else {
			return nil, fmt.Errorf("reading uci config: %w", err)
		}
	} else {
		var cfg ToolConfig
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("decoding uci config: %w", err)
		}
		result.Config = &cfg
		result.ConfigPath = v.ConfigFileUsed()
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)
	return result, nil
}

var envOverrides = map[string]func(c *ToolConfig, val string){
	"UCI_CONFDIR":     func(c *ToolConfig, val string) { c.ConfDir = val },
	"UCI_SAVEDIR":     func(c *ToolConfig, val string) { c.SaveDir = val },
	"UCI_STRICT":      func(c *ToolConfig, val string) { c.Strict = parseBool(val) },
	"UCI_EXPORT_NAME": func(c *ToolConfig, val string) { c.ExportNames = parseBool(val) },
	"UCI_QUIET":       func(c *ToolConfig, val string) { c.Quiet = parseBool(val) },
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func applyEnvOverrides(c *ToolConfig) []string {
	var applied []string
	for envVar, apply := range envOverrides {
		if val, ok := os.LookupEnv(envVar); ok {
			apply(c, val)
			applied = append(applied, envVar)
		}
	}
	return applied
}

// BackendEntry describes one registered backend in a manifest.
type BackendEntry struct {
	Name    string `toml:"name"`
	Kind    string `toml:"kind"` // currently only "file"
	ConfDir string `toml:"confdir"`
	SaveDir string `toml:"savedir"`
}

// BackendManifest is a hand-authored TOML file listing every backend a
// multi-backend deployment wants registered, plus which one is default.
type BackendManifest struct {
	Default  string         `toml:"default"`
	Backends []BackendEntry `toml:"backends"`
}

// LoadBackendManifest decodes a manifest directly with BurntSushi/toml, with
// no viper layer, for the (rarer) multi-backend deployment.
func LoadBackendManifest(path string) (*BackendManifest, error) {
	var m BackendManifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("parsing backend manifest %s: %w", path, err)
	}
	if m.Default == "" && len(m.Backends) > 0 {
		m.Default = m.Backends[0].Name
	}
	for i := range m.Backends {
		m.Backends[i].Kind = normalizeKind(m.Backends[i].Kind)
	}
	return &m, nil
}

// Save writes m back out as TOML, creating the parent directory as needed.
func (m *BackendManifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating manifest file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(m)
}

// Find returns the entry named name, or nil.
func (m *BackendManifest) Find(name string) *BackendEntry {
	for i := range m.Backends {
		if m.Backends[i].Name == name {
			return &m.Backends[i]
		}
	}
	return nil
}

// normalizeKind defaults an empty Kind to "file", the only backend kind
// currently implemented.
func normalizeKind(k string) string {
	if strings.TrimSpace(k) == "" {
		return "file"
	}
	return k
}
