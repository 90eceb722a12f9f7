// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X github.com/flowerornament/zed-supercollider/pkg/buildinfo.Var=value"
// to "go build".
package buildinfo

import (
	"fmt"
	"os"
	"runtime"

	"github.com/flowerornament/zed-supercollider/pkg/prog"
)

// Version identifies the version of sc-launcher. On development commits, it
// identifies the next release.
const Version = "v0.2.0"

// VersionSuffix is appended to Version in the output of "sc-launcher -version"
// to build the full version string. This can be overridden when building.
var VersionSuffix = "-dev.unknown"

// Full returns the full version string.
func Full() string { return Version + VersionSuffix }

// Program is the version subprogram.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags, _ []string) error {
	if !f.Version {
		return prog.ErrNotSuitable
	}
	if f.JSON {
		fmt.Fprintf(fds[1], `{"version":%q,"goversion":%q}`+"\n",
			Full(), runtime.Version())
	} else {
		fmt.Fprintln(fds[1], Full())
	}
	return nil
}
