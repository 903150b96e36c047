// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// RenderKey generates the rendered-content key of a post body.
// Format: render:{id}:{digest}. The digest changes with the body, so an
// edited post never hits a stale rendering even before invalidation.
func RenderKey(id, body string) string {
	return RenderedPrefix + id + ":" + BodyDigest(body)
}

// BodyDigest returns a short hex digest of body.
func BodyDigest(body string) string {
	h, _ := blake2b.New(16, nil)
	_, _ = h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
