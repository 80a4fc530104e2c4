package encryption

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// jpegish is a few bytes shaped like the start of a JPEG with an EXIF block.
var jpegish = append([]byte{0xff, 0xd8, 0xff, 0xe1, 0x00, 0x10}, []byte("Exif\x00\x00MM\x00*2023:07:15 24:00:00")...)

func TestTestEncryptor_KeyLifecycle(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	if _, err := e.Unlock("anything"); err != nil {
		t.Fatalf("Unlock() before Setup error = %v", err)
	}
	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := e.Setup("other"); !errors.Is(err, ErrKeysExist) {
		t.Errorf("second Setup() error = %v, want ErrKeysExist", err)
	}
	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	if _, err := e.Unlock("secret"); err != nil {
		t.Errorf("Unlock(secret) error = %v", err)
	}
}

// TestTestEncryptor_SpooledBackup follows a backup from the original file
// through a spooled ciphertext file and back.
func TestTestEncryptor_SpooledBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := filepath.Join(dir, "IMG_0001.jpg")
	if err := os.WriteFile(original, jpegish, 0644); err != nil {
		t.Fatalf("writing original: %v", err)
	}

	e := NewTestEncryptor()
	src, err := os.Open(original)
	if err != nil {
		t.Fatalf("opening original: %v", err)
	}
	defer src.Close()
	spool, err := os.CreateTemp(dir, "backup-*.age")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer spool.Close()

	if err := e.Encrypt(src, spool); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	size, err := spool.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if size != int64(len(testHeader)+len(jpegish)) {
		t.Errorf("ciphertext size = %d, want %d", size, len(testHeader)+len(jpegish))
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	dc, err := e.Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var restored bytes.Buffer
	if err := dc.Decrypt(spool, &restored); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(restored.Bytes(), jpegish) {
		t.Errorf("restored = %q, want the original bytes", restored.Bytes())
	}
}

func TestTestDecryptionContext_RejectsForeignData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "plain backup", data: jpegish},
		{name: "truncated header", data: testHeader[:3]},
		{name: "empty", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			err := TestDecryptionContext{}.Decrypt(bytes.NewReader(tt.data), &out)
			if !errors.Is(err, errNotTestEncrypted) {
				t.Errorf("Decrypt() error = %v, want errNotTestEncrypted", err)
			}
			if out.Len() != 0 {
				t.Errorf("Decrypt() wrote %d bytes", out.Len())
			}
		})
	}
}
