package models

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// IDSize is the width in bytes of a commit ID (SHA-256).
const IDSize = 32

// CommitID is a fixed-width content hash identifying a commit.
// The zero value means "no commit" (e.g. an absent parent slot).
type CommitID [IDSize]byte

// ZeroID is the null commit ID.
var ZeroID CommitID

// ParseCommitID parses a 64-character hex string into a CommitID.
func ParseCommitID(s string) (CommitID, error) {
	var id CommitID
	if len(s) != IDSize*2 {
		return id, fmt.Errorf("invalid commit id %q: want %d hex characters, got %d", s, IDSize*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid commit id %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// IDFromBytes copies a raw 32-byte slice into a CommitID.
func IDFromBytes(b []byte) (CommitID, error) {
	var id CommitID
	if len(b) != IDSize {
		return id, fmt.Errorf("invalid commit id: want %d bytes, got %d", IDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String returns the full hex form of the ID.
func (id CommitID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns a shortened commit ID (first 7 hex characters).
func (id CommitID) Short() string {
	return id.String()[:7]
}

// MarshalText encodes the ID as hex, so JSON-stored commits stay readable.
func (id CommitID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the hex form produced by MarshalText.
func (id *CommitID) UnmarshalText(text []byte) error {
	parsed, err := ParseCommitID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsZero reports whether the ID is the null ID.
func (id CommitID) IsZero() bool {
	return id == ZeroID
}

// Compare orders two IDs bytewise, like bytes.Compare.
func (id CommitID) Compare(other CommitID) int {
	return bytes.Compare(id[:], other[:])
}

// Less reports whether id sorts before other.
func (id CommitID) Less(other CommitID) bool {
	return id.Compare(other) < 0
}
