package config

import "fmt"

// The following vars are automatically injected via -ldflags.
// No need to change them here.
var (
	// ModuleName e.g. "github/chapool/go-txpipeline"
	ModuleName = "build.local/misses/ldflags"
	// Commit e.g. "59cb7684dd0b0f38d68cd7db657cb614feba8f7e"
	Commit = "< 40 chars git commit hash via ldflags >"
	// BuildDate e.g. "1970-01-01T00:00:00+00:00"
	BuildDate = "1970-01-01T00:00:00+00:00"
)

// GetFormattedBuildArgs returns string representation of buildsargs set via ldflags "<ModuleName> @ <Commit> (<BuildDate>)"
func GetFormattedBuildArgs() string {
	return fmt.Sprintf("%v @ %v (%v)", ModuleName, Commit, BuildDate)
}
