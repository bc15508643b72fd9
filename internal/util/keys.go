package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ParamHash returns a short deterministic hash for a canonicalized parameter
// string. Callers are responsible for producing a canonical input (fixed
// field order, zero fields omitted) so that equal parameter sets collapse to
// the same segment.
func ParamHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:8])
}
