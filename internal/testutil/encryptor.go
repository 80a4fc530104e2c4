package testutil

import (
	"exifrec-go/internal/encryption"
)

// NewTestEncryptor returns the deterministic header-only encryptor.
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
