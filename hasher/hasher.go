// Package hasher fingerprints raw document bytes for de-duplication and
// derives the document and chunk identifiers built from that fingerprint.
package hasher

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const blockSize = 4096

// Hash streams r through MD5 in fixed-size blocks and returns the lower-case
// hex digest. The digest identifies content; it is not a security boundary.
func Hash(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes hashes an in-memory payload.
func HashBytes(data []byte) string {
	sum, _ := Hash(bytes.NewReader(data))
	return sum
}

// HashFile hashes the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Hash(f)
}

// DocumentID is "doc_" followed by the first 8 hex characters of the hash.
func DocumentID(hash string) string {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return "doc_" + hash
}

// ChunkID is "{documentID}_chunk_{index}".
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// onlyReader hides WriterTo so CopyBuffer honours the block size.
type onlyReader struct{ io.Reader }
