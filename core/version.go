package core

// Version is the application version, set at build time via ldflags:
//
//	go build -ldflags "-X github.com/tarun02-git/Prodigy-GenAI-Task4/core.Version=$(git describe --tags --always)" .
//
// Defaults to "dev" when not injected.
var Version = "dev"

// GitCommit is the git commit hash, set at build time via ldflags.
// Defaults to "unknown" when not injected.
var GitCommit = "unknown"

// VersionInfo returns a formatted version string including the commit hash.
//
// Example: "v1.2.0 (commit abc1234)"
func VersionInfo() string {
	return Version + " (commit " + GitCommit + ")"
}
