package app

import (
	"fmt"

	"exifrec-go/internal/config"
	"exifrec-go/internal/encryption"
)

// NeedsKeySetup reports whether cfg selects an encryptor whose keys do not
// exist yet.
func NeedsKeySetup(cfg *config.Config) (bool, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return false, err
	}
	return enc != nil && !enc.IsConfigured(), nil
}

// SetupKeys generates the key pair for cfg's encryptor, protecting the
// private key with passphrase.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return err
	}
	if enc == nil {
		return nil
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption keys: %w", err)
	}
	return nil
}
