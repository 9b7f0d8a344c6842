package npy

import "errors"

var (
	// ErrFormat is returned for blobs that are not well-formed .npy data,
	// including truncated ones.
	ErrFormat = errors.New("npy: invalid format")

	// ErrUnsupportedDType is returned for dtypes this package cannot
	// represent, such as object arrays or structured records.
	ErrUnsupportedDType = errors.New("npy: unsupported dtype")
)
