// Package version reports build information injected at link time.
package version

import (
	"runtime"
)

var (
	version   = "v0.0.0"
	gitCommit = ""
)

// BuildInfo describes the running gopheros binary.
type BuildInfo struct {
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	GitCommit string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GoVersion string `json:"goVersion,omitempty" yaml:"goVersion,omitempty"`
}

// GetVersion returns the semver string of the version
func GetVersion() string {
	return version
}

// Get returns build info
func Get() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
}
