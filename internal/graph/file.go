package graph

import (
	"sort"

	"github.com/kilupskalvis/cgx/internal/models"
)

// GraphFile is a decoded graph file held in memory. Records are sorted by
// ID; the fan-out table narrows binary search to one leading-byte bucket.
type GraphFile struct {
	Records []models.CommitRecord

	// ChecksumOK is false when the file was decoded with DecodeRelaxed and
	// its trailing checksum did not match.
	ChecksumOK bool

	fanout [256]uint32
}

// Len returns the number of records in the file.
func (g *GraphFile) Len() int {
	return len(g.Records)
}

// Fanout returns the fan-out table as read from disk.
func (g *GraphFile) Fanout() [256]uint32 {
	return g.fanout
}

// Lookup finds the record for id, narrowing the search range through the
// fan-out table before binary searching.
func (g *GraphFile) Lookup(id models.CommitID) (*models.CommitRecord, bool) {
	lo := uint32(0)
	if id[0] > 0 {
		lo = g.fanout[id[0]-1]
	}
	hi := g.fanout[id[0]]
	if lo > hi || hi > uint32(len(g.Records)) {
		// Defect in the fan-out table; fall back to the full range.
		lo, hi = 0, uint32(len(g.Records))
	}

	bucket := g.Records[lo:hi]
	i := sort.Search(len(bucket), func(i int) bool {
		return bucket[i].ID.Compare(id) >= 0
	})
	if i < len(bucket) && bucket[i].ID == id {
		return &bucket[i], true
	}
	return nil, false
}

// Generation returns the generation number for id if the file holds it.
func (g *GraphFile) Generation(id models.CommitID) (uint32, bool) {
	rec, ok := g.Lookup(id)
	if !ok {
		return 0, false
	}
	return rec.Generation, true
}
