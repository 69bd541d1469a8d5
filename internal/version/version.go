// Package version exposes build metadata set via -ldflags.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
)

func GetInfo() string {
	if Commit == "none" || Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
