// Copyright 2025 Certen Protocol

package eventlog

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// GlobalStream carries every request's lifecycle events.
const GlobalStream = "verifications"

// ActorStream returns the conventional per-actor stream name for id.
// Identifiers are normalized to Unicode NFC and lowercased first, so two
// DIDs that differ only by normalization or case share one stream —
// otherwise a client presenting the same actor identity with a different
// Unicode form would silently fork its history across two streams.
func ActorStream(actorID string) string {
	return "actor:" + normalizeIdentifier(actorID)
}

func normalizeIdentifier(id string) string {
	return strings.ToLower(norm.NFC.String(id))
}

func keyPrefix(stream string) []byte {
	return []byte(fmt.Sprintf("evlog/%s/seq/", stream))
}

func tailKey(stream string) []byte {
	return []byte(fmt.Sprintf("evlog/%s/tail", stream))
}
