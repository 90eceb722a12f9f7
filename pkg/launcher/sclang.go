package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// detectSclang resolves the sclang executable: explicit setting, then the
// SCLANG_PATH environment variable, then $PATH, then the standard macOS
// install location.
func detectSclang(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if p := os.Getenv(envSclangPath); p != "" {
		if _, err := os.Stat(p); err == nil {
			logger.Println("using sclang from", envSclangPath+"="+p)
			return p, nil
		}
	}
	if p, err := exec.LookPath("sclang"); err == nil {
		return p, nil
	}
	if runtime.GOOS == "darwin" {
		const p = "/Applications/SuperCollider.app/Contents/MacOS/sclang"
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New(
		"sclang not found; set -sclang-path or SCLANG_PATH, or add sclang to PATH")
}

// sclangCommand builds an exec.Cmd for sclang. On Intel macOS it goes
// through arch to force the x86_64 slice of a universal binary; Rosetta
// would otherwise pick a slice mismatching the loaded plugins.
func sclangCommand(path string, args ...string) *exec.Cmd {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "amd64" {
		return exec.Command("arch", append([]string{"-x86_64", path}, args...)...)
	}
	return exec.Command(path, args...)
}

// sclangArgs assembles the sclang argument list for LSP operation.
func sclangArgs(s Settings, sclangPath string) []string {
	args := []string{"--daemon"}
	if s.ConfYAML != "" {
		args = append(args, "--yaml-config", s.ConfYAML)
	}

	// Prefer a vendored LanguageServer quark when the launcher runs from a
	// source checkout; then installed copies and the built-in ScIDE
	// Document class must be excluded so the vendored classes win.
	if vendored := vendoredQuarkPath(); vendored != "" {
		logger.Println("including vendored LanguageServer.quark at", vendored)
		args = append(args, "--include-path", vendored)
		for _, installed := range installedQuarkPaths() {
			args = append(args, "--exclude-path", installed)
		}
		if scide := scideScqtPath(sclangPath); scide != "" {
			args = append(args, "--exclude-path", scide)
		}
	}
	return args
}

// sclangEnv extends the current environment with the LSP handoff variables.
func sclangEnv(s Settings, clientPort, serverPort int) []string {
	env := append(os.Environ(),
		envLSPEnable+"=1",
		envLSPClientPort+"="+strconv.Itoa(clientPort),
		envLSPServerPort+"="+strconv.Itoa(serverPort),
	)
	if s.LogLevel != "" {
		env = append(env, envLSPLogLevel+"="+s.LogLevel)
	}
	return env
}

// vendoredQuarkPath looks for a LanguageServer.quark checkout next to the
// launcher binary or the working directory.
func vendoredQuarkPath() string {
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		// The binary typically sits a few levels below the repo root.
		dir := filepath.Dir(exe)
		for i := 0; i < 4; i++ {
			dir = filepath.Dir(dir)
		}
		candidates = append(candidates, filepath.Join(dir, "server", "quark", "LanguageServer.quark"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "server", "quark", "LanguageServer.quark"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// installedQuarkPaths returns LanguageServer quark copies installed through
// SuperCollider itself.
func installedQuarkPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var paths []string
	for _, rel := range []string{
		"Library/Application Support/SuperCollider/downloaded-quarks/LanguageServer",
		"Library/Application Support/SuperCollider/Extensions/LanguageServer",
	} {
		p := filepath.Join(home, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// quarkInstalled reports whether any LanguageServer quark installation was
// found. Without one, and without a vendored copy, sclang will start but
// never speak LSP.
func quarkInstalled() bool {
	return len(installedQuarkPaths()) > 0 || vendoredQuarkPath() != ""
}

// scideScqtPath locates the built-in scide_scqt class directory, which ships
// a Document class conflicting with the vendored quark's.
func scideScqtPath(sclangPath string) string {
	// macOS layout: Contents/MacOS/sclang next to Contents/Resources.
	contents := filepath.Dir(filepath.Dir(sclangPath))
	candidates := []string{
		filepath.Join(contents, "Resources", "SCClassLibrary", "scide_scqt"),
		"/usr/share/SuperCollider/SCClassLibrary/scide_scqt",
		"/usr/local/share/SuperCollider/SCClassLibrary/scide_scqt",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// probeVersion runs sclang -v and returns its trimmed output.
func probeVersion(path string) (string, error) {
	out, err := sclangCommand(path, "-v").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("sclang -v failed (%v): %s", err, exitErr.Stderr)
		}
		return "", fmt.Errorf("running %s -v: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}
