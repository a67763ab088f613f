package version

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/lkarlslund/pathcost/modules/version.Version=..."
var (
	Program = "pathcost"
	Commit  = ""
	Version = ""
	Summary = "batched AND/OR attack graph cost relaxation"
)

func init() {
	if Commit != "" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				Commit = setting.Value[:7]
			}
		}
	}
}

func ProgramVersionShort() string {
	return strings.Trim(Program+" "+VersionStringShort(), " ")
}

func VersionStringShort() string {
	result := ""
	if Version != "" {
		result += Version
		if strings.Contains(Version, "-") {
			result += " (non-release)"
		}
	}
	if Commit != "" && !strings.Contains(Version, Commit) {
		result += " (commit " + Commit + ")"
	}
	if result == "" {
		result = "(unknown build)"
	}
	return result
}

func VersionString() string {
	return ProgramVersionShort() + ", " + Summary
}
