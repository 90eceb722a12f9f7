package testutil

import (
	"os"
	"path/filepath"

	"github.com/flowerornament/zed-supercollider/pkg/must"
)

// TempDir creates a unique temporary directory and returns its path with all
// symlinks resolved. The directory is removed when the test finishes.
func TempDir(c Cleanuper) string {
	dir := must.OK1(os.MkdirTemp("", "sc-launcher-test"))
	dir = must.OK1(filepath.EvalSymlinks(dir))
	c.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// InTempDir is like TempDir, but also changes into the directory, changing
// back when the test finishes.
func InTempDir(c Cleanuper) string {
	dir := TempDir(c)
	oldWd := must.OK1(os.Getwd())
	must.OK(os.Chdir(dir))
	c.Cleanup(func() { must.OK(os.Chdir(oldWd)) })
	return dir
}
