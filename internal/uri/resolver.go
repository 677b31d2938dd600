// Package uri resolves per-token metadata URIs from a template, matching the
// ERC-1155 metadata substitution rule: the {id} marker is replaced by the
// token id as a 64-character lowercase zero-padded hex string.
package uri

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Placeholder is the reserved marker substituted during resolution.
const Placeholder = "{id}"

// HexIDLength is the width of the substituted hex encoding.
const HexIDLength = 64

// Resolve substitutes the first Placeholder occurrence in template with the
// hex encoding of tokenID. Templates without the marker pass through unchanged.
// The transform is pure and deterministic.
func Resolve(template string, tokenID uint64) string {
	idx := strings.Index(template, Placeholder)
	if idx < 0 {
		return template
	}
	return template[:idx] + HexID(tokenID) + template[idx+len(Placeholder):]
}

// ResolveUint256 is Resolve for full-width token ids decoded from log data.
func ResolveUint256(template string, tokenID *uint256.Int) string {
	idx := strings.Index(template, Placeholder)
	if idx < 0 {
		return template
	}
	return template[:idx] + hex.EncodeToString(tokenID.PaddedBytes(32)) + template[idx+len(Placeholder):]
}

// HexID renders a token id as 64 lowercase hex digits, zero-padded on the left.
func HexID(tokenID uint64) string {
	return fmt.Sprintf("%064x", tokenID)
}
