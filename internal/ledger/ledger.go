// Package ledger implements the multi-token collection ledger: token records,
// holder balances and the supply invariants guarding create/mint/burn.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
	"erc1155-treasury-lab/internal/uri"
)

// Ledger owns the collection state. Every mutating operation is all-or-nothing
// under a single service mutex, mirroring the atomic-call guarantee of the
// contract execution environment the ledger models.
type Ledger struct {
	mu sync.Mutex

	owner    string
	tokens   storage.TokenStore
	balances storage.BalanceStore
	log      storage.TransferLogStore

	collection domain.CollectionInfo

	logger *log.Logger
}

// Options contains configuration for creating a Ledger.
type Options struct {
	Owner        string
	TokenStore   storage.TokenStore
	BalanceStore storage.BalanceStore
	// TransferLog, when set, receives one transfer event per supply mutation
	// (mints from the zero address, burns to it).
	TransferLog storage.TransferLogStore
	Collection  domain.CollectionInfo
	Logger      *log.Logger
}

// New creates a new collection ledger.
func New(opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Ledger{
		owner:      domain.NormalizeAddress(opts.Owner),
		tokens:     opts.TokenStore,
		balances:   opts.BalanceStore,
		log:        opts.TransferLog,
		collection: opts.Collection,
		logger:     logger,
	}
}

// Owner returns the designated owner address.
func (l *Ledger) Owner() string {
	return l.owner
}

// requireOwner checks the caller against the designated owner.
func (l *Ledger) requireOwner(caller string) error {
	if domain.NormalizeAddress(caller) != l.owner {
		return fmt.Errorf("%w: caller %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

// CreateToken inserts a new token record with zero supply. Owner-only.
func (l *Ledger) CreateToken(ctx context.Context, caller string, tokenID uint64, name, description string, maxSupply uint64) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if maxSupply == 0 {
		return fmt.Errorf("%w: max supply must be positive", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record := &domain.TokenRecord{
		ID:          tokenID,
		Name:        name,
		Description: description,
		MaxSupply:   maxSupply,
		IsActive:    true,
		CreatedAt:   time.Now().UnixMilli(),
	}

	if err := l.tokens.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("%w: token %d", ErrAlreadyExists, tokenID)
		}
		return fmt.Errorf("insert token %d: %w", tokenID, err)
	}

	l.logger.Printf("Created token %d %q (max supply %d)", tokenID, name, maxSupply)
	return nil
}

// Mint credits amount of tokenID to the holder, bounded by max supply. Owner-only.
func (l *Ledger) Mint(ctx context.Context, caller, to string, tokenID, amount uint64) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mintLocked(ctx, to, tokenID, amount); err != nil {
		return err
	}

	l.appendLog(ctx, &domain.TransferEvent{
		Kind:      domain.TransferSingle,
		Timestamp: time.Now().UnixMilli(),
		TxRef:     uuid.NewString(),
		Operator:  l.owner,
		From:      domain.ZeroAddress,
		To:        domain.NormalizeAddress(to),
		TokenIDs:  []uint64{tokenID},
		Amounts:   []uint64{amount},
	})
	return nil
}

// MintBatch applies every (id, amount) pair as a unit. All pairs are validated
// before any state is touched; a failing pair rejects the whole batch. Owner-only.
func (l *Ledger) MintBatch(ctx context.Context, caller, to string, tokenIDs, amounts []uint64) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if len(tokenIDs) != len(amounts) {
		return fmt.Errorf("%w: %d ids vs %d amounts", ErrLengthMismatch, len(tokenIDs), len(amounts))
	}
	if domain.NormalizeAddress(to) == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Validation pass. Repeated ids within the batch accumulate against the
	// same supply headroom. The comparison runs against the remaining headroom
	// rather than the summed supply so neither the accumulator nor the check
	// can wrap on a near-maximal amount.
	pending := make(map[uint64]uint64, len(tokenIDs))
	for i, id := range tokenIDs {
		record, err := l.tokens.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: token %d", ErrNotFound, id)
			}
			return fmt.Errorf("get token %d: %w", id, err)
		}
		headroom := record.MaxSupply - record.CurrentSupply
		if amounts[i] > headroom-pending[id] {
			return fmt.Errorf("%w: token %d mint of %d exceeds remaining supply %d",
				ErrSupplyExceeded, id, amounts[i], headroom-pending[id])
		}
		pending[id] += amounts[i]
	}

	// Apply pass.
	for i, id := range tokenIDs {
		if err := l.tokens.AdjustSupply(ctx, id, int64(amounts[i])); err != nil {
			return fmt.Errorf("adjust supply for token %d: %w", id, err)
		}
		if err := l.balances.Add(ctx, to, id, amounts[i]); err != nil {
			return fmt.Errorf("credit %s for token %d: %w", to, id, err)
		}
	}

	l.appendLog(ctx, &domain.TransferEvent{
		Kind:      domain.TransferBatch,
		Timestamp: time.Now().UnixMilli(),
		TxRef:     uuid.NewString(),
		Operator:  l.owner,
		From:      domain.ZeroAddress,
		To:        domain.NormalizeAddress(to),
		TokenIDs:  append([]uint64(nil), tokenIDs...),
		Amounts:   append([]uint64(nil), amounts...),
	})

	l.logger.Printf("Minted batch of %d token kinds to %s", len(tokenIDs), to)
	return nil
}

// Burn debits amount of tokenID from the holder and decrements supply.
// The caller must be the holder or the owner.
func (l *Ledger) Burn(ctx context.Context, caller, from string, tokenID, amount uint64) error {
	callerNorm := domain.NormalizeAddress(caller)
	if callerNorm != domain.NormalizeAddress(from) && callerNorm != l.owner {
		return fmt.Errorf("%w: caller %s may not burn from %s", ErrUnauthorized, caller, from)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.burnLocked(ctx, from, tokenID, amount); err != nil {
		return err
	}

	l.appendLog(ctx, &domain.TransferEvent{
		Kind:      domain.TransferSingle,
		Timestamp: time.Now().UnixMilli(),
		TxRef:     uuid.NewString(),
		Operator:  callerNorm,
		From:      domain.NormalizeAddress(from),
		To:        domain.ZeroAddress,
		TokenIDs:  []uint64{tokenID},
		Amounts:   []uint64{amount},
	})
	return nil
}

// UpdateTokenInfo mutates name and description only, never supply fields. Owner-only.
func (l *Ledger) UpdateTokenInfo(ctx context.Context, caller string, tokenID uint64, name, description string) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.tokens.UpdateInfo(ctx, tokenID, name, description); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: token %d", ErrNotFound, tokenID)
		}
		return fmt.Errorf("update token %d: %w", tokenID, err)
	}
	return nil
}

// GetTokenInfo returns the current record for a token id.
func (l *Ledger) GetTokenInfo(ctx context.Context, tokenID uint64) (*domain.TokenRecord, error) {
	record, err := l.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: token %d", ErrNotFound, tokenID)
		}
		return nil, fmt.Errorf("get token %d: %w", tokenID, err)
	}
	return record, nil
}

// BalanceOf returns the holder's balance for a token id.
func (l *Ledger) BalanceOf(ctx context.Context, holder string, tokenID uint64) (uint64, error) {
	return l.balances.Get(ctx, holder, tokenID)
}

// URI resolves the metadata URI for an active token id.
func (l *Ledger) URI(ctx context.Context, tokenID uint64) (string, error) {
	if _, err := l.GetTokenInfo(ctx, tokenID); err != nil {
		return "", err
	}

	l.mu.Lock()
	template := l.collection.URITemplate
	l.mu.Unlock()

	return uri.Resolve(template, tokenID), nil
}

// Collection returns the current collection-level metadata.
func (l *Ledger) Collection() domain.CollectionInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collection
}

// SetCollectionInfo replaces the collection-level metadata. Owner-only.
func (l *Ledger) SetCollectionInfo(caller string, info domain.CollectionInfo) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.collection = info
	return nil
}

// SetURITemplate replaces the per-token metadata URI template. Owner-only.
func (l *Ledger) SetURITemplate(caller, template string) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if template == "" {
		return fmt.Errorf("%w: empty uri template", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.collection.URITemplate = template
	return nil
}

// mintLocked validates and applies a single mint. Caller holds l.mu.
func (l *Ledger) mintLocked(ctx context.Context, to string, tokenID, amount uint64) error {
	if domain.NormalizeAddress(to) == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidArgument)
	}

	record, err := l.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: token %d", ErrNotFound, tokenID)
		}
		return fmt.Errorf("get token %d: %w", tokenID, err)
	}

	// Headroom arithmetic stays in uint64 and never wraps: CurrentSupply is
	// bounded by MaxSupply, so the subtraction is safe, and comparing amount
	// against the headroom avoids the overflow a sum-side check would have.
	if amount > record.MaxSupply-record.CurrentSupply {
		return fmt.Errorf("%w: token %d supply %d + %d > max %d",
			ErrSupplyExceeded, tokenID, record.CurrentSupply, amount, record.MaxSupply)
	}

	if err := l.tokens.AdjustSupply(ctx, tokenID, int64(amount)); err != nil {
		return fmt.Errorf("adjust supply for token %d: %w", tokenID, err)
	}
	if err := l.balances.Add(ctx, to, tokenID, amount); err != nil {
		return fmt.Errorf("credit %s for token %d: %w", to, tokenID, err)
	}
	return nil
}

// burnLocked validates and applies a single burn. Caller holds l.mu.
func (l *Ledger) burnLocked(ctx context.Context, from string, tokenID, amount uint64) error {
	if _, err := l.tokens.GetByID(ctx, tokenID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: token %d", ErrNotFound, tokenID)
		}
		return fmt.Errorf("get token %d: %w", tokenID, err)
	}

	held, err := l.balances.Get(ctx, from, tokenID)
	if err != nil {
		return fmt.Errorf("get balance of %s for token %d: %w", from, tokenID, err)
	}
	if held < amount {
		return fmt.Errorf("%w: holder %s has %d of token %d, burn wants %d",
			ErrInsufficientBalance, from, held, tokenID, amount)
	}

	if err := l.balances.Sub(ctx, from, tokenID, amount); err != nil {
		return fmt.Errorf("debit %s for token %d: %w", from, tokenID, err)
	}
	if err := l.tokens.AdjustSupply(ctx, tokenID, -int64(amount)); err != nil {
		return fmt.Errorf("adjust supply for token %d: %w", tokenID, err)
	}
	return nil
}

// BurnForTreasury burns on behalf of the treasury's payback flow, which runs
// its own transaction boundary around burn + payment. Treasury-internal use only.
func (l *Ledger) BurnForTreasury(ctx context.Context, from string, tokenID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.burnLocked(ctx, from, tokenID, amount); err != nil {
		return err
	}

	l.appendLog(ctx, &domain.TransferEvent{
		Kind:      domain.TransferSingle,
		Timestamp: time.Now().UnixMilli(),
		TxRef:     uuid.NewString(),
		Operator:  l.owner,
		From:      domain.NormalizeAddress(from),
		To:        domain.ZeroAddress,
		TokenIDs:  []uint64{tokenID},
		Amounts:   []uint64{amount},
	})
	return nil
}

// MintForTreasury restores a burned balance when the paired stable-coin
// transfer fails. Treasury-internal use only.
func (l *Ledger) MintForTreasury(ctx context.Context, to string, tokenID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mintLocked(ctx, to, tokenID, amount)
}

// appendLog records a ledger-emitted transfer event. Log failures are reported
// but do not abort the already-applied operation.
func (l *Ledger) appendLog(ctx context.Context, e *domain.TransferEvent) {
	if l.log == nil {
		return
	}
	if err := l.log.Insert(ctx, e); err != nil {
		l.logger.Printf("Error appending transfer log: %v", err)
	}
}
