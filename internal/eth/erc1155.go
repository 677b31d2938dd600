package eth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"erc1155-treasury-lab/internal/domain"
)

// Event signature topics for the ERC-1155 transfer events.
//
//	TransferSingle(address,address,address,uint256,uint256)
//	TransferBatch(address,address,address,uint256[],uint256[])
//	URI(string,uint256)
const (
	TopicTransferSingle = "0xc3d58168c5ae7397731d063d5bbf3d657854427343f4c083240f7aacaa2d0f62"
	TopicTransferBatch  = "0x4a39dc06d4c0dbc64b70af90fd698a233a518aa5d07e595d983b8c0526c8f7fb"
	TopicURI            = "0x6bb7ff708619ba0610cba295a58592e0451dee2622938c8755667688daf3529b"
)

const wordSize = 32

var errShortData = errors.New("log data too short")

// DecodeTransferLog converts a raw TransferSingle or TransferBatch log into a
// domain transfer event. The block timestamp is filled in later by the scanner.
func DecodeTransferLog(l Log) (*domain.TransferEvent, error) {
	if len(l.Topics) != 4 {
		return nil, fmt.Errorf("transfer log has %d topics, want 4", len(l.Topics))
	}

	operator, err := topicAddress(l.Topics[1])
	if err != nil {
		return nil, fmt.Errorf("decode operator topic: %w", err)
	}
	from, err := topicAddress(l.Topics[2])
	if err != nil {
		return nil, fmt.Errorf("decode from topic: %w", err)
	}
	to, err := topicAddress(l.Topics[3])
	if err != nil {
		return nil, fmt.Errorf("decode to topic: %w", err)
	}

	words, err := dataWords(l.Data)
	if err != nil {
		return nil, err
	}

	event := &domain.TransferEvent{
		BlockNumber: l.BlockNumber,
		LogIndex:    l.LogIndex,
		TxRef:       l.TxHash,
		Operator:    operator,
		From:        from,
		To:          to,
	}

	switch l.Topics[0] {
	case TopicTransferSingle:
		if len(words) < 2 {
			return nil, errShortData
		}
		id, err := wordUint64(words[0])
		if err != nil {
			return nil, fmt.Errorf("decode token id: %w", err)
		}
		value, err := wordUint64(words[1])
		if err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
		event.Kind = domain.TransferSingle
		event.TokenIDs = []uint64{id}
		event.Amounts = []uint64{value}

	case TopicTransferBatch:
		ids, err := decodeUintArray(words, 0)
		if err != nil {
			return nil, fmt.Errorf("decode ids array: %w", err)
		}
		values, err := decodeUintArray(words, 1)
		if err != nil {
			return nil, fmt.Errorf("decode values array: %w", err)
		}
		if len(ids) != len(values) {
			return nil, fmt.Errorf("batch arrays differ: %d ids vs %d values", len(ids), len(values))
		}
		event.Kind = domain.TransferBatch
		event.TokenIDs = ids
		event.Amounts = values

	default:
		return nil, fmt.Errorf("unexpected event topic %s", l.Topics[0])
	}

	return event, nil
}

// topicAddress extracts the address from a 32-byte indexed topic.
func topicAddress(topic string) (string, error) {
	raw := strings.TrimPrefix(topic, "0x")
	if len(raw) != 64 {
		return "", fmt.Errorf("topic has %d hex chars, want 64", len(raw))
	}
	return domain.NormalizeAddress("0x" + raw[24:]), nil
}

// dataWords splits 0x-prefixed log data into 32-byte words.
func dataWords(data string) ([][]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode log data hex: %w", err)
	}
	if len(raw)%wordSize != 0 {
		return nil, fmt.Errorf("log data length %d is not word-aligned", len(raw))
	}

	words := make([][]byte, 0, len(raw)/wordSize)
	for i := 0; i < len(raw); i += wordSize {
		words = append(words, raw[i:i+wordSize])
	}
	return words, nil
}

// wordUint64 interprets a 32-byte word as an unsigned integer that must fit
// in 64 bits. Collection ids and unit amounts never approach the uint256 range.
func wordUint64(word []byte) (uint64, error) {
	v := new(uint256.Int).SetBytes(word)
	if !v.IsUint64() {
		return 0, fmt.Errorf("value %s exceeds 64 bits", v.Hex())
	}
	return v.Uint64(), nil
}

// decodeUintArray decodes the dynamic uint256[] whose offset sits in head word
// headIndex, per the ABI encoding of dynamic arrays.
func decodeUintArray(words [][]byte, headIndex int) ([]uint64, error) {
	if headIndex >= len(words) {
		return nil, errShortData
	}

	offset, err := wordUint64(words[headIndex])
	if err != nil {
		return nil, fmt.Errorf("decode array offset: %w", err)
	}
	if offset%wordSize != 0 {
		return nil, fmt.Errorf("array offset %d is not word-aligned", offset)
	}

	if offset/wordSize >= uint64(len(words)) {
		return nil, errShortData
	}
	lengthIndex := int(offset / wordSize)

	length, err := wordUint64(words[lengthIndex])
	if err != nil {
		return nil, fmt.Errorf("decode array length: %w", err)
	}
	// Compare in uint64 space. A hostile length word near 2^64 must not be
	// narrowed to int before the bounds check.
	if length > uint64(len(words)-lengthIndex-1) {
		return nil, errShortData
	}

	values := make([]uint64, length)
	for i := 0; i < int(length); i++ {
		v, err := wordUint64(words[lengthIndex+1+i])
		if err != nil {
			return nil, fmt.Errorf("decode array element %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
