package deployment

import (
	"path/filepath"
	"testing"

	"erc1155-treasury-lab/internal/domain"
)

func TestRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments", "local.json")

	in := domain.DeploymentRecord{
		ContractAddress: "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		Network:         "localhost",
	}
	if err := SaveRecord(path, in); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	out, err := LoadRecord(path)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if out.ContractAddress != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Errorf("expected lowercased address, got %q", out.ContractAddress)
	}
	if out.Network != "localhost" {
		t.Errorf("unexpected network %q", out.Network)
	}
	if out.DeployedAt == "" {
		t.Error("expected DeployedAt to be stamped on save")
	}
}

func TestLoadRecordMissing(t *testing.T) {
	if _, err := LoadRecord(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestAddressBookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	in := domain.AddressBook{
		"owner":    "0xAAAA567890123456789012345678901234567890",
		"treasury": "0xBBBB567890123456789012345678901234567890",
	}
	if err := SaveAddressBook(path, in); err != nil {
		t.Fatalf("SaveAddressBook failed: %v", err)
	}

	out, err := LoadAddressBook(path)
	if err != nil {
		t.Fatalf("LoadAddressBook failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out["owner"] != "0xaaaa567890123456789012345678901234567890" {
		t.Errorf("expected lowercased owner address, got %q", out["owner"])
	}
}

func TestLoadAddressBookMissing(t *testing.T) {
	book, err := LoadAddressBook(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("expected empty book for missing file, got error: %v", err)
	}
	if len(book) != 0 {
		t.Errorf("expected empty book, got %d entries", len(book))
	}
}
