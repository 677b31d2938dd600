package domain

import "strings"

// ZeroAddress is the EVM null address. Mints originate from it and burns are
// addressed to it in the transfer log.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lowercases a 0x-prefixed hex address for comparison keys.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// IsZeroAddress reports whether addr is the null address.
func IsZeroAddress(addr string) bool {
	return NormalizeAddress(addr) == ZeroAddress
}

// TokenRecord holds metadata and supply bounds for one token id within the
// multi-token collection.
type TokenRecord struct {
	ID            uint64 // token id, unique among active records
	Name          string
	Description   string
	MaxSupply     uint64 // upper bound for CurrentSupply, always > 0
	CurrentSupply uint64 // invariant: CurrentSupply <= MaxSupply
	IsActive      bool   // set true at creation, never unset
	CreatedAt     int64  // Unix timestamp in milliseconds
}

// HolderBalance is one (holder, token) balance row.
type HolderBalance struct {
	Holder  string // normalized 0x address
	TokenID uint64
	Amount  uint64
}

// CollectionInfo is the mutable collection-level metadata.
type CollectionInfo struct {
	Name        string
	Symbol      string
	ContractURI string
	URITemplate string // per-token metadata URI template with an {id} marker
}
