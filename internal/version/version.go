package version

import "runtime"

var (
	AppName     = "Lavabot"
	AppFullName = "Lavabot — Discord music orchestrator"

	// Set via -ldflags at build time.
	BuildDate = "unknown"
	GitCommit = "unknown"

	GoVersion = runtime.Version()
)
