package graph

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/kilupskalvis/cgx/internal/models"
)

// Encode serializes records into a graph file image, including the trailing
// checksum. Records must already be strictly sorted by ID; Encode derives
// the fan-out table and the extra-edge list but never reorders input.
func Encode(records []models.CommitRecord) ([]byte, error) {
	for i := 1; i < len(records); i++ {
		if c := records[i-1].ID.Compare(records[i].ID); c >= 0 {
			if c == 0 {
				return nil, fmt.Errorf("encode: duplicate record id %s", records[i].ID.Short())
			}
			return nil, fmt.Errorf("encode: records not sorted at index %d", i)
		}
	}

	var extra []models.CommitID
	for _, rec := range records {
		if rec.Generation < 1 {
			return nil, fmt.Errorf("encode: commit %s has generation 0", rec.ID.Short())
		}
		if len(rec.Parents) > 2 {
			extra = append(extra, rec.Parents[2:]...)
		}
	}

	size := recordsStart + len(records)*recordSize + len(extra)*models.IDSize + checksumSize
	buf := make([]byte, 0, size)

	// Header.
	buf = append(buf, fileMagic[:]...)
	buf = append(buf, FormatVersion, models.IDSize, 0, 0)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(records)))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(extra)))

	// Fan-out: bucket b holds the count of records whose leading byte is <= b.
	var fanout [256]uint32
	for _, rec := range records {
		fanout[rec.ID[0]]++
	}
	var cum uint32
	for b := 0; b < 256; b++ {
		cum += fanout[b]
		buf = binary.BigEndian.AppendUint32(buf, cum)
	}

	// Records.
	edgeOffset := 0
	for _, rec := range records {
		buf = append(buf, rec.ID[:]...)
		buf = append(buf, rec.TreeID[:]...)

		var p1, p2 models.CommitID
		if len(rec.Parents) > 0 {
			p1 = rec.Parents[0]
		}
		if len(rec.Parents) > 1 {
			p2 = rec.Parents[1]
		}
		buf = append(buf, p1[:]...)
		buf = append(buf, p2[:]...)

		edgeCount := 0
		if len(rec.Parents) > 2 {
			edgeCount = len(rec.Parents) - 2
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(edgeOffset))
		buf = binary.BigEndian.AppendUint32(buf, uint32(edgeCount))
		edgeOffset += edgeCount

		buf = binary.BigEndian.AppendUint32(buf, rec.Generation)
		buf = binary.BigEndian.AppendUint64(buf, uint64(rec.CommitTime))
	}

	// Extra-edge list.
	for _, id := range extra {
		buf = append(buf, id[:]...)
	}

	sum := sha256.Sum256(buf)
	buf = append(buf, sum[:]...)
	return buf, nil
}

// Checksum returns the trailing checksum of an encoded graph file. The file
// name of an installed graph file is derived from it.
func Checksum(data []byte) ([]byte, error) {
	if len(data) < checksumSize {
		return nil, corruptf(0, "file too short for checksum: %d bytes", len(data))
	}
	return data[len(data)-checksumSize:], nil
}

// Decode parses a graph file image, validating every structural invariant.
// Any violation yields an error wrapping ErrCorrupt.
func Decode(data []byte) (*GraphFile, error) {
	g, err := decode(data, false)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// DecodeRelaxed parses a graph file image for verification. Violations that
// make the file unparseable (bad magic, length arithmetic, out-of-range
// references) still fail, but checksum, record ordering and fan-out
// consistency are recorded on the GraphFile instead of failing, so the
// verifier can report them as findings and keep checking.
func DecodeRelaxed(data []byte) (*GraphFile, error) {
	return decode(data, true)
}

func decode(data []byte, relaxed bool) (*GraphFile, error) {
	if len(data) < recordsStart+checksumSize {
		return nil, corruptf(0, "file too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[0:4], fileMagic[:]) {
		return nil, corruptf(0, "bad magic %q, want %q", data[0:4], fileMagic[:])
	}
	if data[4] != FormatVersion {
		return nil, corruptf(4, "unsupported format version %d, want %d", data[4], FormatVersion)
	}
	if data[5] != models.IDSize {
		return nil, corruptf(5, "unsupported hash width %d, want %d", data[5], models.IDSize)
	}

	recordCount := int(binary.BigEndian.Uint32(data[8:12]))
	extraCount := int(binary.BigEndian.Uint32(data[12:16]))

	wantLen := recordsStart + recordCount*recordSize + extraCount*models.IDSize + checksumSize
	if len(data) != wantLen {
		return nil, corruptf(8, "file length %d does not match declared counts (want %d)", len(data), wantLen)
	}

	g := &GraphFile{ChecksumOK: true}

	body := data[:len(data)-checksumSize]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], data[len(body):]) {
		if !relaxed {
			return nil, corruptf(len(body), "checksum mismatch: expected %x, actual %x", data[len(body):], sum[:])
		}
		g.ChecksumOK = false
	}

	var prev uint32
	for b := 0; b < 256; b++ {
		v := binary.BigEndian.Uint32(data[headerSize+b*4 : headerSize+b*4+4])
		if v < prev {
			if !relaxed {
				return nil, corruptf(headerSize+b*4, "fan-out not monotonic at bucket %d: %d < %d", b, v, prev)
			}
		}
		g.fanout[b] = v
		prev = v
	}
	if int(g.fanout[255]) != recordCount {
		if !relaxed {
			return nil, corruptf(headerSize+255*4, "fan-out total %d does not match record count %d", g.fanout[255], recordCount)
		}
	}

	extraStart := recordsStart + recordCount*recordSize
	extra := make([]models.CommitID, extraCount)
	for i := 0; i < extraCount; i++ {
		copy(extra[i][:], data[extraStart+i*models.IDSize:])
	}

	g.Records = make([]models.CommitRecord, recordCount)
	for i := 0; i < recordCount; i++ {
		off := recordsStart + i*recordSize
		rec := &g.Records[i]

		copy(rec.ID[:], data[off:])
		copy(rec.TreeID[:], data[off+models.IDSize:])

		var p1, p2 models.CommitID
		copy(p1[:], data[off+2*models.IDSize:])
		copy(p2[:], data[off+3*models.IDSize:])

		fixed := off + 4*models.IDSize
		edgeOffset := int(binary.BigEndian.Uint32(data[fixed : fixed+4]))
		edgeCount := int(binary.BigEndian.Uint32(data[fixed+4 : fixed+8]))
		rec.Generation = binary.BigEndian.Uint32(data[fixed+8 : fixed+12])
		rec.CommitTime = int64(binary.BigEndian.Uint64(data[fixed+12 : fixed+20]))

		if rec.Generation < 1 && !relaxed {
			return nil, corruptf(fixed+8, "record %d has generation 0", i)
		}
		if p1.IsZero() && (!p2.IsZero() || edgeCount != 0) {
			return nil, corruptf(off+2*models.IDSize, "record %d has parents after a null first parent", i)
		}
		if p2.IsZero() && edgeCount != 0 {
			return nil, corruptf(fixed+4, "record %d has extra edges after a null second parent", i)
		}
		if edgeOffset > extraCount || edgeOffset+edgeCount > extraCount || edgeOffset+edgeCount < edgeOffset {
			return nil, corruptf(fixed, "record %d extra-edge range [%d,%d) exceeds list length %d",
				i, edgeOffset, edgeOffset+edgeCount, extraCount)
		}

		if !p1.IsZero() {
			rec.Parents = append(rec.Parents, p1)
		}
		if !p2.IsZero() {
			rec.Parents = append(rec.Parents, p2)
		}
		rec.Parents = append(rec.Parents, extra[edgeOffset:edgeOffset+edgeCount]...)
	}

	if !relaxed {
		for i := 1; i < recordCount; i++ {
			if g.Records[i-1].ID.Compare(g.Records[i].ID) >= 0 {
				return nil, corruptf(recordsStart+i*recordSize, "record %d out of order", i)
			}
		}
		var fromIDs [256]uint32
		for i := range g.Records {
			fromIDs[g.Records[i].ID[0]]++
		}
		var cum uint32
		for b := 0; b < 256; b++ {
			cum += fromIDs[b]
			if g.fanout[b] != cum {
				return nil, corruptf(headerSize+b*4, "fan-out bucket %d is %d, records say %d", b, g.fanout[b], cum)
			}
		}
	}

	return g, nil
}
