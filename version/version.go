// Package version exposes build-time information for the formbot binary.
package version

import "runtime/debug"

// Version is the release version, overridable at build time with
// -ldflags "-X github.com/formvn/formbot/version.Version=v1.2.3".
var Version = "dev"

// BuildInfo contains build metadata read from the compiled binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Module    string `json:"module"`
	Revision  string `json:"revision,omitempty"`
}

// Get extracts build information from the current binary using the module
// data embedded by the Go toolchain.
func Get() BuildInfo {
	bi := BuildInfo{Version: Version}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	bi.GoVersion = info.GoVersion
	bi.Module = info.Path
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			bi.Revision = s.Value
		}
	}
	return bi
}
