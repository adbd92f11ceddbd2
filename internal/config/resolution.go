package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Source names where a resolved value came from.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// CliFlags holds the values of command-line flags. The *Set fields record
// whether the user passed the flag explicitly.
type CliFlags struct {
	ConfigPath string
	Command    string
	Debug      bool
	AltView    bool
	Format     string
	Theme      string
	Spinner    string
	RawDir     string

	CommandSet bool
	DebugSet   bool
	AltViewSet bool
}

// Resolved is the final configuration plus where the key values came from.
type Resolved struct {
	*Config

	CommandSource string
	DebugSource   string
	FormatSource  string
}

// Resolve loads configuration from all sources with explicit priority order.
// cwd is where the file search starts; getenv defaults to os.Getenv.
func Resolve(flags CliFlags, cwd string, getenv func(string) string) (*Resolved, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Defaults()
	res := &Resolved{
		Config:        cfg,
		CommandSource: SourceDefault,
		DebugSource:   SourceDefault,
		FormatSource:  SourceDefault,
	}

	path := flags.ConfigPath
	if path == "" {
		path = FindFile(cwd, getenv)
	}
	if path != "" {
		before := *cfg
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
		if cfg.Command != before.Command {
			res.CommandSource = SourceFile
		}
		if cfg.Debug != before.Debug {
			res.DebugSource = SourceFile
		}
		if cfg.Format != before.Format {
			res.FormatSource = SourceFile
		}
	}

	// Environment
	if v := strings.TrimSpace(getenv("SVCHECK_COMMAND")); v != "" {
		cfg.Command = v
		res.CommandSource = SourceEnv
	}
	if b := getEnvBool(getenv, "SVCHECK_DEBUG"); b != nil {
		cfg.Debug = *b
		res.DebugSource = SourceEnv
	}
	if b := getEnvBool(getenv, "SVCHECK_ALT_VIEW"); b != nil {
		cfg.UseAlternateResultsView = *b
	}
	if v := strings.TrimSpace(getenv("SVCHECK_FORMAT")); v != "" {
		cfg.Format = v
		res.FormatSource = SourceEnv
	}
	if getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}

	// CLI flags
	if flags.CommandSet {
		cfg.Command = flags.Command
		res.CommandSource = SourceCLI
	}
	if flags.DebugSet {
		cfg.Debug = flags.Debug
		res.DebugSource = SourceCLI
	}
	if flags.AltViewSet {
		cfg.UseAlternateResultsView = flags.AltView
	}
	if flags.Format != "" {
		cfg.Format = flags.Format
		res.FormatSource = SourceCLI
	}
	if flags.Theme != "" {
		cfg.Theme = flags.Theme
	}
	if flags.Spinner != "" {
		cfg.SpinnerFrames = flags.Spinner
	}
	if flags.RawDir != "" {
		cfg.RawOutputDir = flags.RawDir
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return res, nil
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set to a parseable value.
func getEnvBool(getenv func(string) string, keys ...string) *bool {
	for _, key := range keys {
		if val := getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return &b
			}
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Command) == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if !slices.Contains(Formats, cfg.Format) {
		return fmt.Errorf("invalid format %q (must be: %s)", cfg.Format, strings.Join(Formats, ", "))
	}
	if !slices.Contains(Themes, cfg.Theme) {
		return fmt.Errorf("invalid theme %q (must be: %s)", cfg.Theme, strings.Join(Themes, ", "))
	}
	if cfg.SpinnerInterval < 0 {
		return fmt.Errorf("spinner_interval must not be negative, got: %s", cfg.SpinnerInterval)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", cfg.Watch.Debounce)
	}
	if len(cfg.ProjectMarkers) == 0 {
		return fmt.Errorf("project_markers cannot be empty")
	}
	return nil
}
