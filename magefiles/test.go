//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverProfile = "coverage.out"

// Test groups test targets (all, short, cover).
type Test mg.Namespace

// All runs every test verbosely.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Short runs the tests with -short and the race detector.
func (Test) Short() error {
	return sh.RunV(binGo, "test", "-short", "-race", "./...")
}

// Cover writes a coverage profile and prints per-function coverage.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile", coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", coverProfile)
}
