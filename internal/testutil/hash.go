package testutil

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashHex returns the BLAKE3 hash of data in the form the filesystem
// manager reports content hashes.
func HashHex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
