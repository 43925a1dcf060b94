// Package daflcfg loads the scheduler's tunable thresholds and admission
// policy, layering defaults, global and project config files, and explicit
// CLI overrides the same way the teacher's ticket system loads its own
// configuration.
package daflcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// Config holds every scheduler tunable that spec.md section 4.D calls out
// as a concrete default, plus the admission policy from section 4.E.
type Config struct {
	// From config files (serialized).
	THorSeconds  float64 `json:"t_hor_seconds"`
	TVerSeconds  float64 `json:"t_ver_seconds"`
	TExpSeconds  float64 `json:"t_exp_seconds"`
	KVer         uint32  `json:"k_ver"`
	Policy       string  `json:"policy"`
	DFGMapSize   int     `json:"dfg_map_size"`
	SeedDir      string  `json:"seed_dir"`

	// Resolved paths (computed, not serialized).
	EffectiveCwd string `json:"-"`
	SeedDirAbs   string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics).
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string
	Project string
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".dafl.json"

// DefaultConfig returns the scheduler's concrete defaults (spec.md section
// 4.D, "Concrete (default) thresholds").
func DefaultConfig() Config {
	return Config{
		THorSeconds: 60,
		TVerSeconds: 30,
		TExpSeconds: 20,
		KVer:        8,
		Policy:      "default",
		DFGMapSize:  1 << 16,
		SeedDir:     "seeds",
	}
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // --config flag value
	SeedDirOverride string            // --seed-dir flag value; empty means no override
	PolicyOverride  string            // --policy flag value; empty means no override
	Env             map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults -> global user config -> project config -> CLI overrides.
// The project config is the explicit --config file when one is given, and
// the working directory's .dafl.json otherwise; the two are never both
// loaded. All paths in the returned Config are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if input.SeedDirOverride != "" {
		cfg.SeedDir = input.SeedDirOverride
	}

	if input.PolicyOverride != "" {
		cfg.Policy = input.PolicyOverride
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.SeedDir) {
		cfg.SeedDirAbs = cfg.SeedDir
	} else {
		cfg.SeedDirAbs = filepath.Join(workDir, cfg.SeedDir)
	}

	return cfg, nil
}

// Thresholds converts the loaded configuration into scheduler.Thresholds.
func (c Config) Thresholds() scheduler.Thresholds {
	return scheduler.Thresholds{
		THor: secondsToDuration(c.THorSeconds),
		TVer: secondsToDuration(c.TVerSeconds),
		TExp: secondsToDuration(c.TExpSeconds),
		KVer: c.KVer,
	}
}

// ResolvePolicy maps the config's Policy string to a scheduler.Policy.
func (c Config) ResolvePolicy() (scheduler.Policy, error) {
	return parsePolicy(c.Policy)
}

func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "dafl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "dafl", "config.json")
	}

	return ""
}

func loadGlobalConfig(env map[string]string) (Config, string, error) {
	path := getGlobalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, path, nil
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		if _, err := os.Stat(cfgFile); err != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	cfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, cfgFile, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.THorSeconds != 0 {
		base.THorSeconds = overlay.THorSeconds
	}

	if overlay.TVerSeconds != 0 {
		base.TVerSeconds = overlay.TVerSeconds
	}

	if overlay.TExpSeconds != 0 {
		base.TExpSeconds = overlay.TExpSeconds
	}

	if overlay.KVer != 0 {
		base.KVer = overlay.KVer
	}

	if overlay.Policy != "" {
		base.Policy = overlay.Policy
	}

	if overlay.DFGMapSize != 0 {
		base.DFGMapSize = overlay.DFGMapSize
	}

	if overlay.SeedDir != "" {
		base.SeedDir = overlay.SeedDir
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.SeedDir == "" {
		return ErrSeedDirEmpty
	}

	if _, err := parsePolicy(cfg.Policy); err != nil {
		return err
	}

	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
