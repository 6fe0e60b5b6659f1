// Package version carries the agent's build identity, set at link time
// via -ldflags for release builds and left at their zero values for
// local `go build`.
package version

import (
	"fmt"
	"runtime"
)

// Version, Commit and BuildTime are overridden at link time, e.g.:
//
//	go build -ldflags "-X github.com/ulta-agent/ulta/internal/version.Version=1.2.3"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the version command's structured output.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build's Info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("ulta %s (commit %s, built %s)", i.Version, i.Commit, i.BuildTime)
}
