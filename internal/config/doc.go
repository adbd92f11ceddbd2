// Package config handles configuration loading and merging for svcheck.
//
// # Configuration Precedence
//
// Values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--command, --debug, --alt-view, --format, --theme, ...)
//  2. Environment variables (SVCHECK_COMMAND, SVCHECK_DEBUG, SVCHECK_ALT_VIEW,
//     SVCHECK_FORMAT, NO_COLOR)
//  3. YAML config file (.svcheck.yaml in the working directory or a parent,
//     else $XDG_CONFIG_HOME/svcheck/.svcheck.yaml)
//  4. Hardcoded defaults
//
// Merging is field-wise: a source only overrides the fields it sets.
//
// # Environment Variables
//
//   - SVCHECK_COMMAND: the check command, e.g. "pnpm svelte-check"
//   - SVCHECK_DEBUG: "true" or "1" enables the debug trace and raw output
//     retention for every run
//   - SVCHECK_ALT_VIEW: "true" or "1" uses the interactive results browser
//   - SVCHECK_FORMAT: terminal, json, sarif or quickfix
//   - NO_COLOR: any non-empty value disables colors
package config
