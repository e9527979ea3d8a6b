// SPDX-License-Identifier: MIT
//
// Package build carries metadata embedded at link time: application name,
// build timestamp, Git commit and semantic version, for example
//
//	go build -ldflags "-X musicpainter/pkg/build.buildVersion=0.2.0 ..."
package build

import "fmt"

// Description is the one-line summary shown by the CLI.
const Description = "Paint pictures from the dominant frequencies of audio"

// Info is the build metadata.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the metadata for --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Set by -ldflags. Development builds leave them empty.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = devInfo()
)

func devInfo() *Info {
	return &Info{
		Name:        "musicpainter",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags values into the build info. It reports the
// first missing value; the development defaults stay in place in that case.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// GetInfo returns the current build information.
func GetInfo() *Info {
	return buildInfo
}
