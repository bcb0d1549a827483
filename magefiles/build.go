//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "backlog"
	binaryDir  = "bin"
	cmdDir     = "./cmd/backlog"
	modulePath = "github.com/mesh-intelligence/backlog"
)

// ldflags stamps the version reported by "backlog version". BACKLOG_VERSION
// wins over git describe.
func ldflags() string {
	version := os.Getenv("BACKLOG_VERSION")
	if version == "" {
		out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
		if err != nil || strings.TrimSpace(out) == "" {
			version = "dev"
		} else {
			version = strings.TrimSpace(out)
		}
	}
	return fmt.Sprintf("-X %s/internal/cli.Version=%s", modulePath, version)
}

// Build compiles the backlog binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(),
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	for _, path := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
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
	if err := sh.Copy(dst, src); err != nil {
		return err
	}
	return os.Chmod(dst, 0o755)
}
