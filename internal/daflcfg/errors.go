package daflcfg

import "errors"

// Error variables for config loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrSeedDirEmpty       = errors.New("seed-dir cannot be empty")
	ErrUnknownPolicy      = errors.New("unknown admission policy")
)
