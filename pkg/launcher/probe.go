package launcher

import (
	"encoding/json"
	"os"

	"github.com/flowerornament/zed-supercollider/pkg/prog"
)

// ProbeProgram checks that a working sclang can be found and reports it as
// JSON on stdout. It backs the editor's "check setup" command and runs when
// no other subprogram is selected.
type ProbeProgram struct{}

type probeReport struct {
	OK     bool        `json:"ok"`
	Sclang probeSclang `json:"sclang"`
	Note   string      `json:"note"`
}

type probeSclang struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

func (ProbeProgram) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if f.LSP {
		return prog.ErrNotSuitable
	}
	s, err := newSettings(f)
	if err != nil {
		return err
	}
	path, err := detectSclang(s.SclangPath)
	if err != nil {
		return err
	}
	version, err := probeVersion(path)
	if err != nil {
		return err
	}
	return json.NewEncoder(fds[1]).Encode(probeReport{
		OK:     true,
		Sclang: probeSclang{Path: path, Version: version},
		Note:   "use -lsp to start the LanguageServer bridge",
	})
}
