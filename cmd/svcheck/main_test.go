//go:build unix

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	errLine  = `1590680326283 ERROR "src/App.svelte" 1:5 "Type 'string' is not assignable"`
	warnLine = `1590680326283 WARNING "src/Nav.svelte" 7:3 "Unused CSS selector"`
)

type testApp struct {
	*app
	dir    string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestApp creates a project dir with a package.json and an app rooted in
// it that sees only env.
func newTestApp(t *testing.T, env map[string]string) *testApp {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o600))
	if env == nil {
		env = map[string]string{}
	}
	env["XDG_CONFIG_HOME"] = t.TempDir()

	ta := &testApp{dir: dir, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	ta.app = &app{
		stdin:  strings.NewReader(""),
		stdout: ta.stdout,
		stderr: ta.stderr,
		getenv: func(k string) string { return env[k] },
		cwd:    dir,
	}
	return ta
}

// script writes a fake checker that prints lines and exits with code.
func (ta *testApp) script(t *testing.T, code int, lines ...string) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	for _, l := range lines {
		sb.WriteString("printf '%s\\n' '" + strings.ReplaceAll(l, "'", `'\''`) + "'\n")
	}
	sb.WriteString("exit " + strconv.Itoa(code) + "\n")
	path := filepath.Join(ta.dir, "fake-check.sh")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o700))
	return "sh " + path
}

func (ta *testApp) exec(args ...string) int {
	return ta.execute(context.Background(), args)
}

func TestRun_Clean_ExitsZero(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 0, "1590680326778 COMPLETED 12 FILES 0 ERRORS 0 WARNINGS")

	code := ta.exec("--command", cmd)

	assert.Equal(t, 0, code)
	assert.Contains(t, ta.stderr.String(), "svelte-check: 0 errors, 0 warnings in 12 files")
	assert.Empty(t, ta.stdout.String())
}

func TestRun_Issues_ExitsOneAndListsLocations(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 1, "> svelte-check --output machine", errLine, warnLine,
		"1590680326778 COMPLETED 12 FILES 1 ERRORS 1 WARNINGS 2 FILES_WITH_PROBLEMS")

	code := ta.exec("run", "--command", cmd)

	assert.Equal(t, 1, code)
	assert.Contains(t, ta.stdout.String(), "src/App.svelte:1:5")
	assert.Contains(t, ta.stdout.String(), "src/Nav.svelte:7:3")
	assert.Contains(t, ta.stderr.String(), "1 error, 1 warning in 12 files")
}

func TestRun_DiagnosticsOnStderr_AreReported(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	path := filepath.Join(ta.dir, "stderr-check.sh")
	script := "#!/bin/sh\nprintf '%s\\n' '" + strings.ReplaceAll(errLine, "'", `'\''`) + "' 1>&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))

	code := ta.exec("run", "--command", "sh "+path)

	assert.Equal(t, 1, code)
	assert.Contains(t, ta.stdout.String(), "src/App.svelte:1:5")
	assert.Contains(t, ta.stderr.String(), "1 error, 0 warnings in 1 file")
	assert.NotContains(t, ta.stderr.String(), "no diagnostics could be parsed")
}

func TestRun_Ambiguous_KeepsRawOutput(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 1, "Error: Cannot find module 'svelte-check'")

	code := ta.exec("--command", cmd)

	assert.Equal(t, 1, code)
	assert.Contains(t, ta.stderr.String(), "no diagnostics could be parsed")
	raw, err := os.ReadFile(filepath.Join(ta.dir, ".svcheck", "raw", "last.log"))
	require.NoError(t, err)
	assert.Equal(t, "Error: Cannot find module 'svelte-check'\n", string(raw))
}

func TestRun_ToolFailure_ExitsTwo(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 3, "npm ERR! missing script: check")

	code := ta.exec("--command", cmd, "--raw-dir", filepath.Join(ta.dir, "raw-out"))

	assert.Equal(t, 2, code)
	assert.Contains(t, ta.stderr.String(), "exit code 3")
	assert.FileExists(t, filepath.Join(ta.dir, "raw-out", "raw", "last.log"))
}

func TestRun_LaunchFailure_ExitsTwo(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)

	code := ta.exec("--command", "svcheck-no-such-binary --flag")

	assert.Equal(t, 2, code)
	assert.Contains(t, ta.stderr.String(), "command not found")
}

func TestRun_JSONFormat(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 1, errLine)

	code := ta.exec("--command", cmd, "--format", "json")

	assert.Equal(t, 1, code)
	var out struct {
		Errors      int `json:"errors"`
		Diagnostics []struct {
			File string `json:"file"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &out))
	assert.Equal(t, 1, out.Errors)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "src/App.svelte", out.Diagnostics[0].File)
}

func TestRun_QuickfixFormat_WritesFile(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 1, errLine)

	require.Equal(t, 1, ta.exec("--command", cmd, "--format", "quickfix"))

	data, err := os.ReadFile(filepath.Join(ta.dir, ".svcheck", quickfixName))
	require.NoError(t, err)
	assert.Equal(t, "src/App.svelte:1:5: error: Type 'string' is not assignable\n", string(data))
}

func TestRun_CommandFromConfigFile(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(ta.dir, ".svcheck.yaml"), []byte("command: "+cmd+"\n"), 0o600))

	assert.Equal(t, 0, ta.exec())
}

func TestRun_CommandFromEnv(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 1, errLine)
	ta.getenv = func(k string) string {
		if k == "SVCHECK_COMMAND" {
			return cmd
		}
		return ""
	}

	assert.Equal(t, 1, ta.exec())
}

func TestRun_InvalidFormat_IsUsageError(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)

	code := ta.exec("--format", "xml")

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, ta.stderr.String(), "invalid format")
}

func TestRun_Debug_TracesLines(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 1, errLine)

	require.Equal(t, 1, ta.exec("--command", cmd, "--debug"))
	assert.Contains(t, ta.stderr.String(), "level=DEBUG")
	assert.Contains(t, ta.stderr.String(), "matcher=strict")
	assert.FileExists(t, filepath.Join(ta.dir, ".svcheck", "raw", "last.log"), "debug keeps raw output for every run")
}

func TestLegacyAlias_RunsWithDeprecationNotice(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	cmd := ta.script(t, 0)

	code := ta.exec("svelte-check", "--command", cmd)

	assert.Equal(t, 0, code)
	assert.Contains(t, ta.stderr.String(), "deprecated")
}

func TestParse_InfersExitCodeFromErrors(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	ta.stdin = strings.NewReader(errLine + "\n" + warnLine + "\n")

	code := ta.exec("parse")

	assert.Equal(t, 1, code)
	assert.Contains(t, ta.stdout.String(), "src/App.svelte:1:5")
}

func TestParse_SkipsOverlongLineAndKeepsReading(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	ta.stdin = strings.NewReader(strings.Repeat("a", 2<<20) + "\n" + errLine + "\n")

	code := ta.exec("parse")

	assert.Equal(t, 1, code)
	assert.Contains(t, ta.stdout.String(), "src/App.svelte:1:5")
}

func TestParse_WarningsOnlyIsClean(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	ta.stdin = strings.NewReader(warnLine + "\n")

	assert.Equal(t, 0, ta.exec("parse"))
}

func TestParse_ExplicitExitCode(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)
	ta.stdin = strings.NewReader("garbage\n")

	assert.Equal(t, 1, ta.exec("parse", "--exit-code", "1"), "exit 1 without diagnostics is ambiguous")
	assert.Contains(t, ta.stderr.String(), "no diagnostics could be parsed")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)

	assert.Equal(t, 0, ta.exec("version"))
	assert.Contains(t, ta.stdout.String(), "svcheck version")
}

func TestUnknownCommand_IsUsageError(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil)

	assert.Equal(t, exitUsage, ta.exec("frobnicate"))
}
