package jsonstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop/labrec/internal/record"
	"github.com/benchtop/labrec/internal/recstore"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pubs.json")
	s, err := Open(path,
		WithClock(func() time.Time {
			return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
		}),
		WithDownloadsDir(filepath.Join(t.TempDir(), "downloads")),
	)
	require.NoError(t, err)
	return s
}

func TestOpen_MissingFileIsEmptyStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestOpen_CorruptFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Open(path)
	require.Error(t, err)

	// The corrupt file must survive the failed open untouched.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestAdd_AssignsSequentialIDs(t *testing.T) {
	s := createTestStore(t)

	for i, want := range []string{"PUB001", "PUB002", "PUB003"} {
		pub, err := s.Add(map[string]string{record.PubTitle: "paper"}, nil)
		require.NoError(t, err, "add %d", i)
		assert.Equal(t, want, pub.ID)
	}
}

func TestAdd_IDsKeepIncreasingAfterDelete(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Add(map[string]string{record.PubTitle: "one"}, nil)
	require.NoError(t, err)
	second, err := s.Add(map[string]string{record.PubTitle: "two"}, nil)
	require.NoError(t, err)

	ok, err := s.Delete(second.ID)
	require.NoError(t, err)
	require.True(t, ok)

	third, err := s.Add(map[string]string{record.PubTitle: "three"}, nil)
	require.NoError(t, err)
	// The counter follows the last element (PUB001), so the id after
	// deleting PUB002 is PUB002 again, never a duplicate of a live id.
	assert.Equal(t, "PUB002", third.ID)

	got, err := s.Get(third.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "three", got.Fields[record.PubTitle])
}

func TestAdd_PersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubs.json")
	s, err := Open(path)
	require.NoError(t, err)

	att := &recstore.Attachment{Filename: "dna.pdf", Data: []byte("%PDF")}
	added, err := s.Add(map[string]string{
		record.PubTitle: "Molecular Structure of Nucleic Acids",
		record.PubYear:  "1953",
	}, att)
	require.NoError(t, err)

	// Reopen from disk and verify the full round trip.
	s2, err := Open(path)
	require.NoError(t, err)
	got, err := s2.Get(added.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Molecular Structure of Nucleic Acids", got.Fields[record.PubTitle])
	assert.Equal(t, "1953", got.Fields[record.PubYear])
	assert.Equal(t, "dna.pdf", got.PDFFilename)
	assert.Equal(t, []byte("%PDF"), got.PDFData)
	assert.NotEmpty(t, got.Keywords)
}

func TestAdd_DocumentIsIndentedJSONList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubs.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Add(map[string]string{record.PubTitle: "paper"}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc []map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc, 1)
	assert.Equal(t, "PUB001", doc[0]["id"])
}

func TestAdd_RejectsUnknownField(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Add(map[string]string{"doi": "10.1000/x"}, nil)
	require.Error(t, err)
}

func TestGet_NotFoundIsNil(t *testing.T) {
	s := createTestStore(t)
	pub, err := s.Get("PUB999")
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestGetAll_NewestFirst(t *testing.T) {
	s := createTestStore(t)

	for _, title := range []string{"first", "second", "third"} {
		_, err := s.Add(map[string]string{record.PubTitle: title}, nil)
		require.NoError(t, err)
	}

	pubs := s.GetAll()
	require.Len(t, pubs, 3)
	assert.Equal(t, "third", pubs[0].Fields[record.PubTitle])
	assert.Equal(t, "first", pubs[2].Fields[record.PubTitle])
}

func TestGetAll_ReturnsClones(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Add(map[string]string{record.PubTitle: "original"}, nil)
	require.NoError(t, err)

	pubs := s.GetAll()
	pubs[0].Fields[record.PubTitle] = "mutated"

	again := s.GetAll()
	assert.Equal(t, "original", again[0].Fields[record.PubTitle])
}

func TestUpdate_TouchesOnlySuppliedFields(t *testing.T) {
	s := createTestStore(t)

	pub, err := s.Add(map[string]string{
		record.PubTitle:   "original title",
		record.PubJournal: "Nature",
	}, nil)
	require.NoError(t, err)

	ok, err := s.Update(pub.ID, map[string]string{record.PubYear: "1962"})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get(pub.ID)
	require.NoError(t, err)
	assert.Equal(t, "original title", got.Fields[record.PubTitle])
	assert.Equal(t, "Nature", got.Fields[record.PubJournal])
	assert.Equal(t, "1962", got.Fields[record.PubYear])
}

func TestUpdate_RecomputesKeywordsOnTitleChange(t *testing.T) {
	s := createTestStore(t)

	pub, err := s.Add(map[string]string{record.PubTitle: "genome sequencing methods"}, nil)
	require.NoError(t, err)
	assert.Contains(t, pub.Keywords, "genome")

	ok, err := s.Update(pub.ID, map[string]string{record.PubTitle: "protein folding dynamics"})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get(pub.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Keywords, "protein")
	assert.NotContains(t, got.Keywords, "genome")
}

func TestUpdate_KeywordsUntouchedForOtherFields(t *testing.T) {
	s := createTestStore(t)

	pub, err := s.Add(map[string]string{record.PubTitle: "genome sequencing"}, nil)
	require.NoError(t, err)

	ok, err := s.Update(pub.ID, map[string]string{record.PubJournal: "Cell"}) // no title/abstract
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get(pub.ID)
	require.NoError(t, err)
	assert.Equal(t, pub.Keywords, got.Keywords)
}

func TestUpdate_MissingIDReturnsFalse(t *testing.T) {
	s := createTestStore(t)
	ok, err := s.Update("PUB404", map[string]string{record.PubTitle: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_RejectsEmptyFieldSet(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Update("PUB001", map[string]string{})
	require.Error(t, err)
}

func TestDelete_RemovesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubs.json")
	s, err := Open(path)
	require.NoError(t, err)

	keep, err := s.Add(map[string]string{record.PubTitle: "keep"}, nil)
	require.NoError(t, err)
	drop, err := s.Add(map[string]string{record.PubTitle: "drop"}, nil)
	require.NoError(t, err)

	ok, err := s.Delete(drop.ID)
	require.NoError(t, err)
	require.True(t, ok)

	s2, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s2.Len())
	got, err := s2.Get(keep.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	gone, err := s2.Get(drop.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDelete_MissingIDReturnsFalse(t *testing.T) {
	s := createTestStore(t)
	ok, err := s.Delete("PUB404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportAttachment_RoundTrip(t *testing.T) {
	s := createTestStore(t)

	data := []byte("%PDF-1.4 exact bytes")
	pub, err := s.Add(map[string]string{record.PubTitle: "x"},
		&recstore.Attachment{Filename: "scan.pdf", Data: data})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "scan.pdf")
	path, err := s.ExportAttachment(pub.ID, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestExportAttachment_MissingOrBare(t *testing.T) {
	s := createTestStore(t)

	path, err := s.ExportAttachment("PUB404", "")
	require.NoError(t, err)
	assert.Empty(t, path)

	bare, err := s.Add(map[string]string{record.PubTitle: "no pdf"}, nil)
	require.NoError(t, err)
	path, err = s.ExportAttachment(bare.ID, "")
	require.NoError(t, err)
	assert.Empty(t, path)
}
