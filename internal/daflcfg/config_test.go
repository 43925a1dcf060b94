package daflcfg_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/daflcfg"
	"github.com/pslhy/DAFL/internal/scheduler"
)

func Test_LoadConfig_DefaultsWhenNoFilesExist(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	cfg, err := daflcfg.LoadConfig(daflcfg.LoadConfigInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{},
	})
	require.NoError(t, err)
	require.Equal(t, "seeds", cfg.SeedDir)
	require.Equal(t, filepath.Join(workDir, "seeds"), cfg.SeedDirAbs)
	require.Equal(t, scheduler.DefaultThresholds(), cfg.Thresholds())

	policy, err := cfg.ResolvePolicy()
	require.NoError(t, err)
	require.Equal(t, scheduler.PolicyDefault, policy)
}

func Test_LoadConfig_ProjectFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, daflcfg.ConfigFileName), `{
		// trailing-comma and comments are fine, this is JSONC
		"t_hor_seconds": 120,
		"k_ver": 4,
		"policy": "unique_val_per_path",
	}`)

	cfg, err := daflcfg.LoadConfig(daflcfg.LoadConfigInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{},
	})
	require.NoError(t, err)
	require.Equal(t, 120*time.Second, cfg.Thresholds().THor)
	require.Equal(t, uint32(4), cfg.Thresholds().KVer)

	policy, err := cfg.ResolvePolicy()
	require.NoError(t, err)
	require.Equal(t, scheduler.PolicyUniqueValPerPath, policy)
}

func Test_LoadConfig_CLIOverrideWinsOverProjectFile(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, daflcfg.ConfigFileName), `{"seed_dir": "from-file"}`)

	cfg, err := daflcfg.LoadConfig(daflcfg.LoadConfigInput{
		WorkDirOverride: workDir,
		SeedDirOverride: "from-cli",
		Env:             map[string]string{},
	})
	require.NoError(t, err)
	require.Equal(t, "from-cli", cfg.SeedDir)
}

func Test_LoadConfig_ExplicitConfigFileMustExist(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	_, err := daflcfg.LoadConfig(daflcfg.LoadConfigInput{
		WorkDirOverride: workDir,
		ConfigPath:      "missing.json",
		Env:             map[string]string{},
	})
	require.ErrorIs(t, err, daflcfg.ErrConfigFileNotFound)
}

func Test_LoadConfig_RejectsUnknownPolicy(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, daflcfg.ConfigFileName), `{"policy": "not-a-policy"}`)

	_, err := daflcfg.LoadConfig(daflcfg.LoadConfigInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{},
	})
	require.ErrorIs(t, err, daflcfg.ErrUnknownPolicy)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
