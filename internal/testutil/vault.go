package testutil

import (
	"exifrec-go/internal/vault"
)

// NewTestVault creates an in-memory vault.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}
