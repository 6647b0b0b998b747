package version

import (
	"runtime/debug"
	"strings"
)

// Default is the default version value used when none was found.
const Default = "dev"

const modulePath = "github.com/tetratelabs/sparcemit"

// version holds the current version from the go.mod of downstream users or
// set by ldflag for the sparcemit CLI.
var version string

// GetVersion returns the current version of sparcemit either in the go.mod
// or set by ldflag for the sparcemit CLI.
func GetVersion() (ret string) {
	if len(version) != 0 {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if ok {
		for _, dep := range info.Deps {
			if strings.Contains(dep.Path, modulePath) {
				ret = dep.Version
			}
		}
		// In the CLI, sparcemit is the main module.
		if versionMissing(ret) {
			ret = info.Main.Version
		}
	}
	if versionMissing(ret) {
		return Default // don't return parens
	}
	// Cache for the subsequent calls.
	version = ret
	return ret
}

func versionMissing(ret string) bool {
	return ret == "" || ret == "(devel)"
}
