package launcher

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/flowerornament/zed-supercollider/pkg/must"
	"github.com/flowerornament/zed-supercollider/pkg/testutil"
)

func TestDetectSclang(t *testing.T) {
	dir := testutil.InTempDir(t)

	t.Run("explicit setting wins", func(t *testing.T) {
		got, err := detectSclang("/opt/sc/sclang")
		if err != nil {
			t.Fatal(err)
		}
		if got != "/opt/sc/sclang" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("environment variable", func(t *testing.T) {
		fake := filepath.Join(dir, "sclang")
		must.CreateEmpty(fake)
		testutil.Setenv(t, envSclangPath, fake)
		got, err := detectSclang("")
		if err != nil {
			t.Fatal(err)
		}
		if got != fake {
			t.Errorf("got %q, want %q", got, fake)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if runtime.GOOS == "darwin" {
			t.Skip("default install location may exist")
		}
		testutil.Unsetenv(t, envSclangPath)
		testutil.Setenv(t, "PATH", dir)
		if _, err := detectSclang(""); err == nil {
			t.Error("want error when sclang is nowhere to be found")
		}
	})
}

func TestSclangArgs(t *testing.T) {
	testutil.InTempDir(t) // no vendored quark checkout in sight

	t.Run("daemon only", func(t *testing.T) {
		got := sclangArgs(Settings{}, "/usr/bin/sclang")
		if len(got) != 1 || got[0] != "--daemon" {
			t.Errorf("args = %v, want just --daemon", got)
		}
	})

	t.Run("language config", func(t *testing.T) {
		got := strings.Join(sclangArgs(Settings{ConfYAML: "/tmp/conf.yaml"}, "/usr/bin/sclang"), " ")
		if !strings.Contains(got, "--yaml-config /tmp/conf.yaml") {
			t.Errorf("args = %v, want --yaml-config", got)
		}
	})

	t.Run("vendored quark", func(t *testing.T) {
		dir := testutil.InTempDir(t)
		quark := filepath.Join(dir, "server", "quark", "LanguageServer.quark")
		must.OK(os.MkdirAll(quark, 0o700))
		got := strings.Join(sclangArgs(Settings{}, "/usr/bin/sclang"), " ")
		if !strings.Contains(got, "--include-path "+quark) {
			t.Errorf("args = %v, want vendored quark include", got)
		}
	})
}

func TestSclangEnv(t *testing.T) {
	env := sclangEnv(Settings{LogLevel: "debug"}, 4100, 4200)
	for _, want := range []string{
		envLSPEnable + "=1",
		envLSPClientPort + "=4100",
		envLSPServerPort + "=4200",
		envLSPLogLevel + "=debug",
	} {
		found := false
		for _, kv := range env {
			if kv == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("environment is missing %s", want)
		}
	}
}

func TestSclangEnv_NoLogLevel(t *testing.T) {
	for _, kv := range sclangEnv(Settings{}, 1, 2) {
		if strings.HasPrefix(kv, envLSPLogLevel+"=") {
			t.Errorf("log level set without a configured value: %s", kv)
		}
	}
}
