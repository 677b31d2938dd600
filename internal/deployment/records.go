// Package deployment persists deployment records and wallet address books
// as JSON files so tools can locate contracts across runs.
package deployment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"erc1155-treasury-lab/internal/domain"
)

// SaveRecord writes a deployment record to path, creating parent directories.
func SaveRecord(path string, record domain.DeploymentRecord) error {
	if record.DeployedAt == "" {
		record.DeployedAt = time.Now().UTC().Format(time.RFC3339)
	}
	record.ContractAddress = domain.NormalizeAddress(record.ContractAddress)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal deployment record: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadRecord reads a deployment record from path.
func LoadRecord(path string) (domain.DeploymentRecord, error) {
	var record domain.DeploymentRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("parse deployment record: %w", err)
	}
	record.ContractAddress = domain.NormalizeAddress(record.ContractAddress)
	return record, nil
}

// SaveAddressBook writes a named wallet address book to path.
func SaveAddressBook(path string, book domain.AddressBook) error {
	normalized := make(domain.AddressBook, len(book))
	for name, addr := range book {
		normalized[name] = domain.NormalizeAddress(addr)
	}

	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal address book: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadAddressBook reads a wallet address book from path. A missing file
// yields an empty book rather than an error.
func LoadAddressBook(path string) (domain.AddressBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.AddressBook{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var book domain.AddressBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse address book: %w", err)
	}
	for name, addr := range book {
		book[name] = domain.NormalizeAddress(addr)
	}
	return book, nil
}
