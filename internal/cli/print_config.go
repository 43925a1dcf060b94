package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/pslhy/DAFL/internal/daflcfg"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg daflcfg.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective scheduler configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg daflcfg.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("seed_dir=" + cfg.SeedDirAbs)
	io.Printf("policy=%s\n", cfg.Policy)
	io.Printf("t_hor_seconds=%g\n", cfg.THorSeconds)
	io.Printf("t_ver_seconds=%g\n", cfg.TVerSeconds)
	io.Printf("t_exp_seconds=%g\n", cfg.TExpSeconds)
	io.Printf("k_ver=%d\n", cfg.KVer)
	io.Printf("dfg_map_size=%d\n", cfg.DFGMapSize)

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
