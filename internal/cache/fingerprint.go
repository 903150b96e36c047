// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/olegiv/oblog/internal/posts"
)

// Fingerprint digests the name, modification time and size of every entry.
// Entries are sorted by name first so enumeration order does not matter.
// Content edits that keep both mtime and size are not detected.
func Fingerprint(entries []posts.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Name + "|" + strconv.FormatInt(e.ModTime.UnixNano(), 10) + "|" + strconv.FormatInt(e.Size, 10)
	}
	slices.Sort(lines)

	sum := blake2b.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
