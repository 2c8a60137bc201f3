// Package version reports build information for /version and the startup log.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/pscheid92/foodcart/internal/platform/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information. Commit and BuildTime fall back to the VCS
// stamp the go tool embeds when ldflags did not set them.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyVCS(&info, bi.Settings)
	}
	return info
}

func applyVCS(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && s.Value != "" {
				info.BuildTime = s.Value
			}
		}
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s, built %s, %s)", i.Version, i.Commit, i.BuildTime, i.GoVersion)
}
