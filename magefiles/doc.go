//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the backlog project using Mage.
//
// Usage:
//
//	mage build         Compile the backlog binary to bin/
//	mage install       Install backlog to GOPATH/bin
//	mage test:all      Run every test
//	mage test:short    Run tests with -short and the race detector
//	mage test:cover    Write coverage.out and print per-function coverage
//	mage lint          Run golangci-lint
//	mage clean         Remove build artifacts
//	mage stats         Print Go line counts per package as JSON
package main
