// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// resourcePath returns the slash-separated output-relative path for one
// resource: "<dir>/<id>.<dir>" where dir is the table tag's DirName.
func resourcePath(dir string, id uint32) string {
	return dir + "/" + strconv.FormatUint(uint64(id), 10) + "." + dir
}

// uniqueRelPath returns relPath untouched on first use and appends "~N"
// before the extension on repeated collisions (case-insensitive). Resource
// ids are decimal, so "~" never appears in natural names.
func uniqueRelPath(seen map[string]int, relPath string) string {
	key := strings.ToLower(relPath)
	n := seen[key]
	seen[key] = n + 1
	if n == 0 {
		return relPath
	}

	ext := path.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)

	return fmt.Sprintf("%s~%d%s", base, n+1, ext)
}

// normalizeRulePattern normalizes user rule patterns for matcher use.
// It trims spaces, accepts both "/" and "\", and removes leading "./".
func normalizeRulePattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	pattern = strings.ReplaceAll(pattern, `\`, `/`)
	pattern = strings.TrimPrefix(pattern, "./")

	return pattern
}
