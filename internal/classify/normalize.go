package classify

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Normalize absorbs cosmetic edits — CRLF line endings and trailing
// whitespace — so re-indexing triggers only on substantive changes. No
// case folding or Unicode normalization is applied.
func Normalize(raw []byte) []byte {
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	lines := bytes.Split(raw, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, " \t")
	}
	return bytes.Join(lines, []byte("\n"))
}

// Hash returns the lowercase hex SHA-256 of already-normalized bytes.
func Hash(normalized []byte) string {
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:])
}

// HashFile normalizes then hashes raw file content in one step.
func HashFile(raw []byte) string {
	return Hash(Normalize(raw))
}
