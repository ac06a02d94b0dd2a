//go:build mage

// Package main provides build targets for the consultora project using Mage.
//
// Usage:
//
//	mage build          Compile consultora binary to bin/
//	mage test           Run all tests
//	mage testShort      Run tests in -short mode, skipping end-to-end CLI runs
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install consultora to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "consultora"
	binaryDir  = "bin"
	cmdDir     = "./cmd/consultora"
	versionVar = "github.com/mesh-intelligence/consultora/internal/cli.Version"
)

// ldflags stamps the version from $CONSULTORA_VERSION when set.
func ldflags() string {
	if v := os.Getenv("CONSULTORA_VERSION"); v != "" {
		return "-X " + versionVar + "=" + v
	}
	return ""
}

// Build compiles the consultora binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestShort runs the tests in -short mode.
func TestShort() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
