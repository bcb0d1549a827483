//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type packageStats struct {
	Package string `json:"package"`
	Files   int    `json:"files"`
	Prod    int    `json:"loc_prod"`
	Test    int    `json:"loc_test"`
}

// Stats prints Go line counts per package, one JSON object per line,
// followed by a total.
func Stats() error {
	byDir := map[string]*packageStats{}

	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == binaryDir || name == "magefiles") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, countErr := countLines(path)
		if countErr != nil {
			return nil
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		ps, ok := byDir[dir]
		if !ok {
			ps = &packageStats{Package: dir}
			byDir[dir] = ps
		}
		ps.Files++
		if strings.HasSuffix(path, "_test.go") {
			ps.Test += count
		} else {
			ps.Prod += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	total := packageStats{Package: "total"}
	enc := json.NewEncoder(os.Stdout)
	for _, dir := range dirs {
		ps := byDir[dir]
		total.Files += ps.Files
		total.Prod += ps.Prod
		total.Test += ps.Test
		if err := enc.Encode(ps); err != nil {
			return err
		}
	}
	if err := enc.Encode(total); err != nil {
		return fmt.Errorf("writing total: %w", err)
	}
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
