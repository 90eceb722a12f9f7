package launcher

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/flowerornament/zed-supercollider/pkg/must"
	"github.com/flowerornament/zed-supercollider/pkg/prog"
	"github.com/flowerornament/zed-supercollider/pkg/testutil"
)

func TestLoadConfig(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.Setenv(t, "XDG_CONFIG_HOME", dir)
	testutil.Setenv(t, "HOME", dir)

	t.Run("missing default file is not an error", func(t *testing.T) {
		c, err := loadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(Config{}, c); diff != "" {
			t.Errorf("config (-want +got):\n%s", diff)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("want error for missing explicit config file")
		}
	})

	t.Run("parses fields", func(t *testing.T) {
		path := filepath.Join(dir, "sc-launcher.yaml")
		must.WriteFile(path,
			"sclang_path: /opt/sclang\nlog_level: debug\nhttp_port: 9000\n")
		c, err := loadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		want := Config{SclangPath: "/opt/sclang", LogLevel: "debug", HTTPPort: 9000}
		if diff := cmp.Diff(want, c); diff != "" {
			t.Errorf("config (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects bad YAML", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		must.WriteFile(path, "sclang_path: [unclosed\n")
		if _, err := loadConfig(path); err == nil {
			t.Error("want error for malformed YAML")
		}
	})
}

func TestNewSettings_FlagsOverrideConfig(t *testing.T) {
	dir := testutil.InTempDir(t)
	path := filepath.Join(dir, "conf.yaml")
	must.WriteFile(path, "sclang_path: /from/config\nlog_level: info\nhttp_port: 9000\n")

	tests := []struct {
		name  string
		flags prog.Flags
		want  Settings
	}{
		{
			"config fills unset flags",
			prog.Flags{ConfigPath: path, HTTPPort: defaultHTTPPort},
			Settings{SclangPath: "/from/config", LogLevel: "info", HTTPPort: 9000},
		},
		{
			"flags win",
			prog.Flags{ConfigPath: path, SclangPath: "/from/flag", LogLevel: "debug", HTTPPort: 9999},
			Settings{SclangPath: "/from/flag", LogLevel: "debug", HTTPPort: 9999},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := newSettings(&test.flags)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("settings (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewSettings_DefaultPort(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.Setenv(t, "XDG_CONFIG_HOME", dir)
	testutil.Setenv(t, "HOME", dir)

	got, err := newSettings(&prog.Flags{HTTPPort: defaultHTTPPort})
	if err != nil {
		t.Fatal(err)
	}
	if got.HTTPPort != defaultHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", got.HTTPPort, defaultHTTPPort)
	}
}
