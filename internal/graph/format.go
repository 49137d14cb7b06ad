// Package graph implements the commit-graph binary file format and the
// record builder that derives generation numbers from the object store.
//
// A graph file is a self-contained, immutable snapshot of index records for
// a set of commits, laid out for binary search by commit ID:
//
//	offset 0     magic "CGIX"
//	offset 4     format version (1)
//	offset 5     hash width in bytes (32)
//	offset 6     reserved, zero
//	offset 8     record count, uint32
//	offset 12    extra-edge count, uint32
//	offset 16    fan-out table, 256 cumulative uint32 buckets
//	offset 1040  records, sorted by ID, 148 bytes each:
//	             commit id (32) | tree id (32) | parent 1 (32) |
//	             parent 2 (32) | edge offset (uint32) | edge count (uint32) |
//	             generation (uint32) | commit time (int64)
//	...          extra-edge list, 32-byte IDs
//	tail         SHA-256 over all preceding bytes
//
// All integers are big-endian. A commit's first two parents are stored
// inline; a non-zero edge count points the remainder into the extra-edge
// list. Records beyond two parents keep their parent order.
package graph

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/kilupskalvis/cgx/internal/models"
)

const (
	// FormatVersion is the on-disk graph file format version.
	FormatVersion = 1

	headerSize   = 16
	fanoutSize   = 256 * 4
	recordsStart = headerSize + fanoutSize
	recordSize   = models.IDSize*4 + 4 + 4 + 4 + 8
	checksumSize = sha256.Size
)

var fileMagic = [4]byte{'C', 'G', 'I', 'X'}

var (
	// ErrCorrupt reports a graph file that fails self-consistency checks.
	ErrCorrupt = errors.New("corrupt graph file")

	// ErrInvalidHistory reports a parent relation that cannot be indexed:
	// a cycle, or a parent missing from both the input set and the prior chain.
	ErrInvalidHistory = errors.New("invalid commit history")
)

// corruptf wraps ErrCorrupt with the offset at which decoding failed.
func corruptf(offset int, format string, args ...interface{}) error {
	return fmt.Errorf("%w at offset %d: %s", ErrCorrupt, offset, fmt.Sprintf(format, args...))
}
