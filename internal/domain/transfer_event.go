package domain

// TransferKind distinguishes single and batch transfer events.
type TransferKind string

const (
	TransferSingle TransferKind = "SINGLE"
	TransferBatch  TransferKind = "BATCH"
)

// TransferEvent is one reconstructed ledger transfer. For SINGLE events
// TokenIDs and Amounts hold exactly one element. Mints carry the zero address
// as From, burns carry it as To.
type TransferEvent struct {
	Kind        TransferKind
	BlockNumber uint64
	LogIndex    uint64 // position within the block, ordering tiebreaker
	Timestamp   int64  // block wall-clock time, Unix milliseconds
	TxRef       string // transaction hash
	Operator    string
	From        string
	To          string
	TokenIDs    []uint64
	Amounts     []uint64
}

// ContainsToken reports whether the event touches tokenID.
func (e *TransferEvent) ContainsToken(tokenID uint64) bool {
	for _, id := range e.TokenIDs {
		if id == tokenID {
			return true
		}
	}
	return false
}

// TotalAmount sums the event's transferred amounts.
func (e *TransferEvent) TotalAmount() uint64 {
	var total uint64
	for _, a := range e.Amounts {
		total += a
	}
	return total
}

// BlockRange is an inclusive block span [From, To].
type BlockRange struct {
	From uint64
	To   uint64
}

// Blocks returns the number of blocks covered by the range.
func (r BlockRange) Blocks() uint64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}
