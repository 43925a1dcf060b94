package seedstore

import "errors"

// Error variables for seed persistence.
var (
	ErrSeedDirEmpty   = errors.New("seed directory cannot be empty")
	ErrWriteExhausted = errors.New("seed write retries exhausted")
	ErrSeedNotFound   = errors.New("seed file not found")
	ErrIndexClosed    = errors.New("seed index is closed")
	errMalformedName  = errors.New("malformed seed file name")
)
