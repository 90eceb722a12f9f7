package buildinfo

import (
	"fmt"
	"runtime"
	"testing"

	. "github.com/flowerornament/zed-supercollider/pkg/prog/progtest"
)

func TestProgram(t *testing.T) {
	Test(t, Program,
		ThatLauncher("-version").WritesStdout(Full()+"\n"),
		ThatLauncher("-version", "-json").WritesStdout(
			fmt.Sprintf(`{"version":%q,"goversion":%q}`+"\n", Full(), runtime.Version())),

		// Doesn't run without -version.
		ThatLauncher().ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}
