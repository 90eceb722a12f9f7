package launcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flowerornament/zed-supercollider/pkg/prog"
)

const defaultHTTPPort = 57130

// Config is the optional sc-launcher.yaml file. Command-line flags override
// anything set here.
type Config struct {
	SclangPath string `yaml:"sclang_path"`
	ConfYAML   string `yaml:"conf_yaml_path"`
	LogLevel   string `yaml:"log_level"`
	HTTPPort   int    `yaml:"http_port"`
}

// Settings is the effective launcher configuration after merging the config
// file and command-line flags.
type Settings struct {
	SclangPath string
	ConfYAML   string
	LogLevel   string
	HTTPPort   int
}

// loadConfig reads the config file at path, or the default location when path
// is empty. A missing file at the default location is not an error; a missing
// file at an explicitly given path is.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		base, err := os.UserConfigDir()
		if err != nil {
			return Config{}, nil
		}
		path = filepath.Join(base, "sc-launcher", "sc-launcher.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// newSettings merges the config file under the command-line flags. A flag left
// at its zero value falls back to the config file; for the HTTP port, where
// the flag has a non-zero default, the default counts as unset.
func newSettings(f *prog.Flags) (Settings, error) {
	c, err := loadConfig(f.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		SclangPath: f.SclangPath,
		ConfYAML:   f.ConfYAML,
		LogLevel:   f.LogLevel,
		HTTPPort:   f.HTTPPort,
	}
	if s.SclangPath == "" {
		s.SclangPath = c.SclangPath
	}
	if s.ConfYAML == "" {
		s.ConfYAML = c.ConfYAML
	}
	if s.LogLevel == "" {
		s.LogLevel = c.LogLevel
	}
	if s.HTTPPort == defaultHTTPPort && c.HTTPPort != 0 {
		s.HTTPPort = c.HTTPPort
	}
	if s.HTTPPort == 0 {
		s.HTTPPort = defaultHTTPPort
	}
	return s, nil
}
