// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// secureFilenameStrip matches everything a secure filename may not contain.
var secureFilenameStrip = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename returns an ASCII-only version of filename that is safe to
// use as a single path element: compatibility-decomposed, non-ASCII dropped,
// separators and whitespace turned into underscores, anything outside
// [A-Za-z0-9_.-] removed and leading/trailing dots and underscores trimmed.
// A name is considered secure only when SecureFilename returns it unchanged.
func SecureFilename(filename string) string {
	decomposed := norm.NFKD.String(filename)

	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 0x80 {
			sb.WriteRune(r)
		}
	}
	ascii := sb.String()

	ascii = strings.ReplaceAll(ascii, "/", " ")
	ascii = strings.ReplaceAll(ascii, "\\", " ")
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = secureFilenameStrip.ReplaceAllString(ascii, "")

	return strings.Trim(ascii, "._")
}

// IsSecureFilename reports whether name is a single, already-sanitized path
// element with no traversal sequences.
func IsSecureFilename(name string) bool {
	if name == "" || ContainsPathTraversal(name) || HasPathSeparator(name) {
		return false
	}
	return SecureFilename(name) == name
}

// ValidatePathWithinBase ensures that a resolved path is within the expected
// base directory. It cleans both paths and checks that the resolved path
// starts with the base path. Returns an error if path traversal is detected.
func ValidatePathWithinBase(basePath, targetPath string) error {
	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}

	absTarget, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return fmt.Errorf("invalid target path: %w", err)
	}

	// Trailing separator so /posts-malicious does not match /posts
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: path escapes base directory")
	}

	return nil
}

// SafeJoinPath joins path components and validates the result is within
// the base directory. Returns the cleaned path or an error if traversal
// is detected.
func SafeJoinPath(basePath string, components ...string) (string, error) {
	fullPath := filepath.Join(append([]string{basePath}, components...)...)

	if err := ValidatePathWithinBase(basePath, fullPath); err != nil {
		return "", err
	}

	return fullPath, nil
}

// ContainsPathTraversal checks if a path contains traversal sequences,
// either in its raw form or after cleaning.
func ContainsPathTraversal(path string) bool {
	if strings.Contains(path, "..") {
		return true
	}
	cleaned := filepath.Clean(path)
	return strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, string(filepath.Separator)+"..")
}

// HasPathSeparator reports whether name contains a forward or backward slash.
func HasPathSeparator(name string) bool {
	return strings.ContainsAny(name, `/\`)
}

// StripExtension removes the final extension from name, if any.
// "post.txt" becomes "post"; ".txt" stays ".txt".
func StripExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// HasExtension reports whether name ends with one of exts, case-insensitively.
// Extensions are expected with a leading dot.
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
