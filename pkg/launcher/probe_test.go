//go:build unix

package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowerornament/zed-supercollider/pkg/must"
	"github.com/flowerornament/zed-supercollider/pkg/prog/progtest"
	"github.com/flowerornament/zed-supercollider/pkg/testutil"
)

func TestProbeProgram(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.Setenv(t, "XDG_CONFIG_HOME", dir)
	testutil.Setenv(t, "HOME", dir)

	script := filepath.Join(dir, "sclang")
	must.WriteFile(script, "#!/bin/sh\necho 'sclang 3.13.0 (Built from branch main)'\n")
	must.OK(os.Chmod(script, 0o755))

	progtest.Test(t, ProbeProgram{},
		progtest.ThatLauncher("-sclang-path", script).
			WritesStdoutContaining(`"ok":true`),
		progtest.ThatLauncher("-sclang-path", script).
			WritesStdoutContaining(`"version":"sclang 3.13.0 (Built from branch main)"`),

		// Probe is the fallback; -lsp belongs to the bridge subprogram.
		progtest.ThatLauncher("-lsp", "-sclang-path", script).
			ExitsWith(2).
			WritesStderrContaining("no suitable subprogram"),
	)
}

func TestProbeProgram_FailingSclang(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.Setenv(t, "XDG_CONFIG_HOME", dir)
	testutil.Setenv(t, "HOME", dir)

	script := filepath.Join(dir, "sclang")
	must.WriteFile(script, "#!/bin/sh\necho 'dyld: missing library' >&2\nexit 1\n")
	must.OK(os.Chmod(script, 0o755))

	progtest.Test(t, ProbeProgram{},
		progtest.ThatLauncher("-sclang-path", script).
			ExitsWith(2).
			WritesStderrContaining("sclang -v failed"),
	)
}
