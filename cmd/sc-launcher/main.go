// Command sc-launcher supervises a headless sclang process and bridges its
// UDP-based language server to an editor speaking LSP over stdio.
package main

import (
	"os"

	"github.com/flowerornament/zed-supercollider/pkg/buildinfo"
	"github.com/flowerornament/zed-supercollider/pkg/launcher"
	"github.com/flowerornament/zed-supercollider/pkg/prog"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			buildinfo.Program,
			launcher.Program{},
			launcher.ProbeProgram{})))
}
