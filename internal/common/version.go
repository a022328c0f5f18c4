// Package common provides shared utilities for chartd
package common

// Build metadata, set via -ldflags at release time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)
