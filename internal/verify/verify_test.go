package verify

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cgx/internal/chain"
	"github.com/kilupskalvis/cgx/internal/graph"
	"github.com/kilupskalvis/cgx/internal/models"
	"github.com/kilupskalvis/cgx/internal/store"
)

func testID(s string) models.CommitID {
	return sha256.Sum256([]byte(s))
}

func putCommit(t *testing.T, st *store.MockStore, id models.CommitID, parents ...models.CommitID) {
	t.Helper()
	err := st.PutCommit(&models.Commit{
		ID:         id,
		TreeID:     testID("tree-of-" + id.Short()),
		Parents:    parents,
		CommitTime: 1700000000,
	})
	require.NoError(t, err)
}

func seedLinear(t *testing.T, st *store.MockStore, label string, n int, parent models.CommitID) []models.CommitID {
	t.Helper()
	ids := make([]models.CommitID, 0, n)
	for i := 0; i < n; i++ {
		id := testID(fmt.Sprintf("%s-%d", label, i))
		if parent.IsZero() {
			putCommit(t, st, id)
		} else {
			putCommit(t, st, id, parent)
		}
		ids = append(ids, id)
		parent = id
	}
	return ids
}

// installFiles encodes each record set into its own graph file and writes
// a manifest listing them base first, bypassing the chain writer so tests
// control the exact on-disk state.
func installFiles(t *testing.T, dir string, fileRecords ...[]models.CommitRecord) []string {
	t.Helper()
	var manifest []byte
	var names []string
	for _, records := range fileRecords {
		data, err := graph.Encode(records)
		require.NoError(t, err)
		sum, err := graph.Checksum(data)
		require.NoError(t, err)
		name := fmt.Sprintf("graph-%x.cgx", sum)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
		manifest = append(manifest, name...)
		manifest = append(manifest, '\n')
		names = append(names, name)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, chain.ManifestName), manifest, 0644))
	return names
}

func TestVerify_HealthyChainHasNoFindings(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 20, models.ZeroID)

	_, err := chain.Write(dir, st, ids, chain.Options{})
	require.NoError(t, err)

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestVerify_NoChainInstalled(t *testing.T) {
	findings, err := Chain(t.TempDir(), store.NewMockStore(), Options{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestVerify_TreeMismatchPinpointsOneCommit(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 10, models.ZeroID)

	records, err := graph.Build(ids, st, nil, nil)
	require.NoError(t, err)

	// Corrupt one record's tree before encoding, so the file checksum is
	// valid and the damage is confined to that single field.
	bad := records[4].ID
	records[4].TreeID[0] ^= 0x01
	installFiles(t, dir, records)

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingTreeMismatch, findings[0].Kind)
	assert.Equal(t, bad, findings[0].Commit)
}

func TestVerify_GenerationMismatch(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 5, models.ZeroID)

	records, err := graph.Build(ids, st, nil, nil)
	require.NoError(t, err)

	// Inflate the tip's generation; it has no children, so exactly one
	// record can disagree with the recomputation.
	bad := ids[len(ids)-1]
	for i := range records {
		if records[i].ID == bad {
			records[i].Generation += 3
		}
	}
	installFiles(t, dir, records)

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingGenerationMismatch, findings[0].Kind)
	assert.Equal(t, bad, findings[0].Commit)
}

func TestVerify_ParentMismatch(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 3, models.ZeroID)

	records, err := graph.Build(ids, st, nil, nil)
	require.NoError(t, err)
	installFiles(t, dir, records)

	// Rewrite one commit in the store with a different parent list.
	victim := ids[2]
	st.Delete(victim)
	putCommit(t, st, victim, ids[0])

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingParentMismatch, findings[0].Kind)
	assert.Equal(t, victim, findings[0].Commit)
}

func TestVerify_MissingCommitInStore(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 4, models.ZeroID)

	_, err := chain.Write(dir, st, ids, chain.Options{})
	require.NoError(t, err)

	st.Delete(ids[3])

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingMissingCommit, findings[0].Kind)
	assert.Equal(t, ids[3], findings[0].Commit)
}

func TestVerify_CorruptFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 6, models.ZeroID)

	records, err := graph.Build(ids, st, nil, nil)
	require.NoError(t, err)
	names := installFiles(t, dir, records)

	// Flip a byte inside the trailing checksum itself: the records stay
	// intact, so the only finding is the checksum failure.
	path := filepath.Join(dir, names[0])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingCorrupt, findings[0].Kind)
}

func TestVerify_DiskTreeFlipAddsChecksumFinding(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	ids := seedLinear(t, st, "main", 6, models.ZeroID)

	records, err := graph.Build(ids, st, nil, nil)
	require.NoError(t, err)
	names := installFiles(t, dir, records)

	// Flip the first byte of the first record's tree id on disk. Unlike the
	// pre-encode corruption above, the stored checksum no longer matches, so
	// the damaged field is reported alongside a file-level checksum finding.
	const recordSize = 4*32 + 4 + 4 + 4 + 8
	path := filepath.Join(dir, names[0])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	recordsStart := len(data) - sha256.Size - len(records)*recordSize
	data[recordsStart+32] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0644))

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, models.FindingCorrupt, findings[0].Kind)
	assert.Equal(t, models.FindingTreeMismatch, findings[1].Kind)
	assert.Equal(t, records[0].ID, findings[1].Commit)
}

func TestVerify_UnloadableBaseFileDoesNotCascade(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	base := seedLinear(t, st, "main", 5, models.ZeroID)
	tip := seedLinear(t, st, "tip", 3, base[len(base)-1])

	baseRecords, err := graph.Build(base, st, nil, nil)
	require.NoError(t, err)
	prior := map[models.CommitID]uint32{}
	for _, rec := range baseRecords {
		prior[rec.ID] = rec.Generation
	}
	tipRecords, err := graph.Build(tip, st, mapGenerations(prior), nil)
	require.NoError(t, err)
	names := installFiles(t, dir, baseRecords, tipRecords)

	// Destroy the base file's magic so it cannot be decoded at all. The tip
	// commit whose parent lived there must not pile per-record structural
	// findings on top of the one corruption report.
	path := filepath.Join(dir, names[0])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] = 'X'
	require.NoError(t, os.WriteFile(path, data, 0644))

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingCorrupt, findings[0].Kind)
	assert.Equal(t, names[0], findings[0].File)
}

func TestVerify_ParentInLaterFileIsStructural(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	parent := testID("parent")
	child := testID("child")
	putCommit(t, st, parent)
	putCommit(t, st, child, parent)

	parentRec := models.CommitRecord{
		ID: parent, TreeID: testID("tree-of-" + parent.Short()),
		Generation: 1, CommitTime: 1700000000,
	}
	childRec := models.CommitRecord{
		ID: child, TreeID: testID("tree-of-" + child.Short()),
		Parents: []models.CommitID{parent}, Generation: 2, CommitTime: 1700000000,
	}

	// Child in the base file, parent only in the tip: edges must never
	// point forward in chain order.
	installFiles(t, dir, []models.CommitRecord{childRec}, []models.CommitRecord{parentRec})

	findings, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingStructuralError, findings[0].Kind)
	assert.Equal(t, child, findings[0].Commit)
}

func TestVerify_ShallowSkipsBaseFileIssues(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMockStore()
	base := seedLinear(t, st, "main", 8, models.ZeroID)
	tip := seedLinear(t, st, "tip", 2, base[len(base)-1])

	baseRecords, err := graph.Build(base, st, nil, nil)
	require.NoError(t, err)

	prior := map[models.CommitID]uint32{}
	for _, rec := range baseRecords {
		prior[rec.ID] = rec.Generation
	}
	tipRecords, err := graph.Build(tip, st, mapGenerations(prior), nil)
	require.NoError(t, err)

	names := installFiles(t, dir, baseRecords, tipRecords)

	// Corrupt the base file on disk.
	path := filepath.Join(dir, names[0])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	shallow, err := Chain(dir, st, Options{Shallow: true})
	require.NoError(t, err)
	assert.Empty(t, shallow, "shallow coverage stops at the tip")

	full, err := Chain(dir, st, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, full)
}

type mapGenerations map[models.CommitID]uint32

func (m mapGenerations) Generation(id models.CommitID) (uint32, bool) {
	g, ok := m[id]
	return g, ok
}
