package eth

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"erc1155-treasury-lab/internal/domain"
)

// Precomputed ERC-20 function selectors.
const (
	selSymbol    = "0x95d89b41"
	selDecimals  = "0x313ce567"
	selBalanceOf = "0x70a08231"
	selAllowance = "0xdd62ed3e"
)

// ERC20Caller issues read-only calls against an ERC-20 token such as USDC.
// It is the live balance view behind the treasury's getBalance.
type ERC20Caller struct {
	rpc   *HTTPClient
	token string
}

// NewERC20Caller creates a read-only caller bound to one token contract.
func NewERC20Caller(rpc *HTTPClient, token string) *ERC20Caller {
	return &ERC20Caller{rpc: rpc, token: domain.NormalizeAddress(token)}
}

// BalanceOf returns the token balance of an account.
func (c *ERC20Caller) BalanceOf(ctx context.Context, account string) (uint64, error) {
	out, err := c.rpc.Call(ctx, c.token, selBalanceOf+padAddress(account))
	if err != nil {
		return 0, fmt.Errorf("call balanceOf: %w", err)
	}
	return parseUintOutput(out)
}

// Allowance returns how much spender may draw from owner's account.
func (c *ERC20Caller) Allowance(ctx context.Context, owner, spender string) (uint64, error) {
	out, err := c.rpc.Call(ctx, c.token, selAllowance+padAddress(owner)+padAddress(spender))
	if err != nil {
		return 0, fmt.Errorf("call allowance: %w", err)
	}
	return parseUintOutput(out)
}

// Decimals returns the token's fixed-point precision.
func (c *ERC20Caller) Decimals(ctx context.Context) (uint8, error) {
	out, err := c.rpc.Call(ctx, c.token, selDecimals)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	v, err := parseUintOutput(out)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// Symbol returns the token's symbol string.
func (c *ERC20Caller) Symbol(ctx context.Context) (string, error) {
	out, err := c.rpc.Call(ctx, c.token, selSymbol)
	if err != nil {
		return "", fmt.Errorf("call symbol: %w", err)
	}
	return parseStringOutput(out)
}

// padAddress left-pads a 20-byte address to a 32-byte call argument.
func padAddress(addr string) string {
	raw := strings.TrimPrefix(domain.NormalizeAddress(addr), "0x")
	return strings.Repeat("0", 64-len(raw)) + raw
}

// parseUintOutput decodes a single uint256 return value that must fit 64 bits.
func parseUintOutput(hexData string) (uint64, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return 0, fmt.Errorf("decode return data: %w", err)
	}
	if len(raw) < wordSize {
		return 0, errShortData
	}

	v := new(uint256.Int).SetBytes(raw[len(raw)-wordSize:])
	if !v.IsUint64() {
		return 0, fmt.Errorf("value %s exceeds 64 bits", v.Hex())
	}
	return v.Uint64(), nil
}

// parseStringOutput decodes an ABI-encoded string return value.
func parseStringOutput(hexData string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode return data: %w", err)
	}
	if len(raw) < 2*wordSize {
		return "", errShortData
	}

	// Word 0 is the offset, word 1 the byte length, data follows. The sum
	// of header and length is compared subtraction-side so a near-maximal
	// length word cannot wrap it.
	length := new(uint256.Int).SetBytes(raw[wordSize : 2*wordSize])
	if !length.IsUint64() || length.Uint64() > uint64(len(raw))-2*wordSize {
		return "", fmt.Errorf("string length out of bounds")
	}
	return string(raw[2*wordSize : 2*wordSize+length.Uint64()]), nil
}
