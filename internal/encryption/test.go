package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"exifrec-go/internal/exifrec"
)

// testHeader marks data produced by TestEncryptor.
var testHeader = []byte("EXRTEST\x00")

// errNotTestEncrypted is returned when decrypting data that does not carry
// the test header, such as a plain backup.
var errNotTestEncrypted = errors.New("data was not produced by the test encryptor")

// TestEncryptor is a deterministic stand-in for age used by tests and by
// `encryption.type = "test"`. Ciphertext is the original bytes behind a
// fixed header. It keeps age's key lifecycle: Setup runs once, and once a
// passphrase is set Unlock only accepts that passphrase.
type TestEncryptor struct {
	passphrase string
	configured bool
}

var _ exifrec.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	if e.configured {
		return ErrKeysExist
	}
	e.passphrase, e.configured = passphrase, true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase until Setup has been called.
func (e *TestEncryptor) Unlock(passphrase string) (exifrec.DecryptionContext, error) {
	if e.configured && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return errNotTestEncrypted
		}
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return errNotTestEncrypted
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
