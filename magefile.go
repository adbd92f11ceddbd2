//go:build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	modulePath = "github.com/dkoosis/svcheck"
	binPath    = "./bin/svcheck"
)

// Default target - build the binary
var Default = Build

// Build builds the svcheck binary with version information.
func Build() error {
	printH2Header("Build")

	date := time.Now().UTC().Format(time.RFC3339)
	ldflags := fmt.Sprintf("-s -w -X '%[1]s/internal/version.Version=%[2]s' -X '%[1]s/internal/version.CommitHash=%[3]s' -X '%[1]s/internal/version.BuildDate=%[4]s'",
		modulePath, gitVersion(), gitCommit(), date)

	if err := os.MkdirAll("bin", 0o750); err != nil {
		return err
	}
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath, "./cmd/svcheck"); err != nil {
		printError("Build failed")
		return err
	}
	printSuccess("Built: " + binPath)
	return nil
}

// Clean removes build artifacts.
func Clean() error {
	printH2Header("Clean")
	if err := sh.Rm("bin"); err != nil {
		return err
	}
	if err := sh.Rm("coverage.out"); err != nil {
		return err
	}
	printSuccess("Cleaned build artifacts")
	return nil
}

// QA runs formatting, vet, lint, race tests and the build.
func QA() error {
	mg.SerialDeps(Lint.All, Test.Race, Build)
	printSuccess("QA complete!")
	return nil
}

// Lint namespace for linting commands
type Lint mg.Namespace

// All runs all linters. Missing optional linters are skipped.
func (Lint) All() error {
	var errs []error
	for _, f := range []func() error{Lint{}.Format, Lint{}.Vet, Lint{}.Golangci} {
		if err := f(); err != nil && !isCommandNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Format checks code formatting.
func (Lint) Format() error {
	printH2Header("Go Format")
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		return fmt.Errorf("files need gofmt:\n%s", out)
	}
	return nil
}

// Vet runs go vet.
func (Lint) Vet() error {
	printH2Header("Go Vet")
	return sh.RunV("go", "vet", "./...")
}

// Golangci runs golangci-lint.
func (Lint) Golangci() error {
	printH2Header("Golangci-lint")
	if err := sh.RunV("golangci-lint", "run", "--timeout=5m", "./..."); err != nil {
		if isCommandNotFound(err) {
			printWarning("Golangci-lint not found (install: go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest)")
			return err
		}
		return fmt.Errorf("golangci-lint failed: %w", err)
	}
	return nil
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	printH2Header("Tests")
	if err := sh.RunV("go", "test", "./..."); err != nil {
		printError("Tests failed")
		return err
	}
	printSuccess("All tests passed")
	return nil
}

// Race runs tests with the race detector.
func (Test) Race() error {
	printH2Header("Race Detector")
	if err := sh.RunV("go", "test", "-race", "./..."); err != nil {
		printError("Race detector found issues")
		return err
	}
	printSuccess("No race conditions detected")
	return nil
}

// Coverage runs tests with coverage and prints the per-function report.
func (Test) Coverage() error {
	printH2Header("Test Coverage")
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		printError("Tests failed")
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Fuzz runs the line parser fuzz target for a short while.
func (Test) Fuzz() error {
	printH2Header("Fuzz")
	return sh.RunV("go", "test", "-run=^$", "-fuzz=FuzzParse", "-fuzztime=30s", "./pkg/machine")
}

func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty", "--match=v*")
	if err != nil {
		return "dev"
	}
	return strings.TrimSpace(out)
}

func gitCommit() string {
	out, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out)
}

func isCommandNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		strings.Contains(err.Error(), "executable file not found")
}

func printH2Header(title string) {
	fmt.Printf("\n=== %s ===\n\n", title)
}

func printSuccess(msg string) { fmt.Printf("✅ %s\n", msg) }
func printWarning(msg string) { fmt.Printf("⚠️  %s\n", msg) }
func printError(msg string)   { fmt.Printf("❌ %s\n", msg) }
