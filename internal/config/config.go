package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for in the working directory and its
// parents.
const FileName = ".svcheck.yaml"

// Constants for default values.
const (
	DefaultCommand       = "npm run check --"
	DefaultFormat        = "terminal"
	DefaultTheme         = "default"
	DefaultRawOutputDir  = ".svcheck"
	DefaultWatchDebounce = 300 * time.Millisecond
)

// DefaultProjectMarkers identify a project root.
var DefaultProjectMarkers = []string{"package.json"}

// DefaultWatchExtensions are the file types that trigger a watch re-run.
var DefaultWatchExtensions = []string{".svelte", ".ts", ".js", ".mjs", ".cjs", ".json"}

// Formats lists the accepted output formats.
var Formats = []string{"terminal", "json", "sarif", "quickfix"}

// Themes lists the built-in terminal themes.
var Themes = []string{"default", "orca", "mono"}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
}

// Config is the resolved configuration.
type Config struct {
	Command                 string        `yaml:"command"`
	SpinnerFrames           string        `yaml:"spinner_frames"`
	SpinnerInterval         time.Duration `yaml:"spinner_interval"`
	Debug                   bool          `yaml:"debug"`
	UseAlternateResultsView bool          `yaml:"use_alternate_results_view"`
	Format                  string        `yaml:"format"`
	Theme                   string        `yaml:"theme"`
	NoColor                 bool          `yaml:"no_color"`
	RawOutputDir            string        `yaml:"raw_output_dir"`
	ProjectMarkers          []string      `yaml:"project_markers"`
	Watch                   WatchConfig   `yaml:"watch"`

	// Path of the config file that was loaded, empty when none.
	Source string `yaml:"-"`
}

// Defaults returns the hardcoded configuration.
func Defaults() *Config {
	return &Config{
		Command:        DefaultCommand,
		Format:         DefaultFormat,
		Theme:          DefaultTheme,
		RawOutputDir:   DefaultRawOutputDir,
		ProjectMarkers: append([]string(nil), DefaultProjectMarkers...),
		Watch: WatchConfig{
			Extensions: append([]string(nil), DefaultWatchExtensions...),
			Debounce:   DefaultWatchDebounce,
		},
	}
}

// fileConfig mirrors Config with pointers so unset keys can be told apart
// from zero values.
type fileConfig struct {
	Command                 *string        `yaml:"command"`
	SpinnerFrames           *string        `yaml:"spinner_frames"`
	SpinnerInterval         *time.Duration `yaml:"spinner_interval"`
	Debug                   *bool          `yaml:"debug"`
	UseAlternateResultsView *bool          `yaml:"use_alternate_results_view"`
	Format                  *string        `yaml:"format"`
	Theme                   *string        `yaml:"theme"`
	NoColor                 *bool          `yaml:"no_color"`
	RawOutputDir            *string        `yaml:"raw_output_dir"`
	ProjectMarkers          []string       `yaml:"project_markers"`
	Watch                   *struct {
		Extensions []string       `yaml:"extensions"`
		Debounce   *time.Duration `yaml:"debounce"`
	} `yaml:"watch"`
}

// LoadFile reads a config file and merges it onto cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is the user's config file
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	fc.applyTo(cfg)
	cfg.Source = path
	return nil
}

func (fc *fileConfig) applyTo(cfg *Config) {
	setString(&cfg.Command, fc.Command)
	setString(&cfg.SpinnerFrames, fc.SpinnerFrames)
	if fc.SpinnerInterval != nil {
		cfg.SpinnerInterval = *fc.SpinnerInterval
	}
	setBool(&cfg.Debug, fc.Debug)
	setBool(&cfg.UseAlternateResultsView, fc.UseAlternateResultsView)
	setString(&cfg.Format, fc.Format)
	setString(&cfg.Theme, fc.Theme)
	setBool(&cfg.NoColor, fc.NoColor)
	setString(&cfg.RawOutputDir, fc.RawOutputDir)
	if len(fc.ProjectMarkers) > 0 {
		cfg.ProjectMarkers = fc.ProjectMarkers
	}
	if fc.Watch != nil {
		if len(fc.Watch.Extensions) > 0 {
			cfg.Watch.Extensions = fc.Watch.Extensions
		}
		if fc.Watch.Debounce != nil {
			cfg.Watch.Debounce = *fc.Watch.Debounce
		}
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// FindFile looks for FileName in start and each parent directory, then in
// the user config directory. It returns "" when no file exists.
func FindFile(start string, getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if start != "" {
		dir, err := filepath.Abs(start)
		if err == nil {
			for {
				candidate := filepath.Join(dir, FileName)
				if fileExists(candidate) {
					return candidate
				}
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}
		}
	}

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserConfigDir(); err == nil {
			configHome = home
		}
	}
	// An empty or root config dir is unusable for the per-user path.
	if configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "svcheck", FileName)
	if fileExists(xdgPath) {
		return xdgPath
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
