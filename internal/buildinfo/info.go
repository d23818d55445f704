// Package buildinfo holds version details stamped into the moneymngr
// binary with -ldflags "-X github.com/moneymngr/moneymngr/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
