package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func testOptions() Options {
	return Options{Dimensions: 3, Backend: "memory", Keyword: true}
}

func entry(path string, idx int, text string, vec ...float32) models.IndexEntry {
	return models.IndexEntry{
		Vector: vec,
		Chunk: models.Chunk{
			ID:         fileid.ChunkID(path, idx),
			Text:       text,
			SourcePath: path,
			SourceStem: "stem",
			ChunkIndex: idx,
		},
	}
}

func seed(t *testing.T, dir string) *LocalStore {
	t.Helper()
	s, err := Create(context.Background(), dir, testOptions())
	require.NoError(t, err)
	entries := []models.IndexEntry{
		entry("docs/a.md", 0, "alpha release notes", 1, 0, 0),
		entry("docs/a.md", 1, "beta rollout plan", 0, 1, 0),
		entry("docs/b.txt", 0, "gamma incident review", 0, 0, 1),
	}
	require.NoError(t, s.Insert(context.Background(), entries))
	require.NoError(t, s.Persist())
	return s
}

func TestSearch_ordersBySimilarity(t *testing.T) {
	s := seed(t, t.TempDir())
	defer s.Close()

	hits, err := s.Search(context.Background(), []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "alpha release notes", hits[0].Chunk.Text)
	assert.Equal(t, "beta rollout plan", hits[1].Chunk.Text)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearch_kLargerThanStore(t *testing.T) {
	s := seed(t, t.TempDir())
	defer s.Close()

	hits, err := s.Search(context.Background(), []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	assert.Equal(t, "docs/b.txt", hits[0].Chunk.SourcePath)
}

func TestInsert_rejectsWrongDimensions(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	err = s.Insert(context.Background(), []models.IndexEntry{entry("a.txt", 0, "x", 1, 2)})
	assert.Error(t, err)

	_, err = s.Search(context.Background(), []float32{1}, 1)
	assert.Error(t, err)
}

func TestOpen_reloadsPersistedIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, seed(t, dir).Close())

	s, err := Open(context.Background(), dir, testOptions())
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Search(context.Background(), []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Chunk.ChunkIndex)
}

func TestOpen_missingIndex(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), testOptions())
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestCreate_discardsPreviousIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, seed(t, dir).Close())

	s, err := Create(context.Background(), dir, testOptions())
	require.NoError(t, err)
	defer s.Close()

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Documents)
	assert.Zero(t, st.Chunks)
	assert.Zero(t, st.Vectors)
	_, err = os.Stat(filepath.Join(dir, VectorsFile))
	assert.True(t, os.IsNotExist(err))
}

func TestStats_andDocuments(t *testing.T) {
	s := seed(t, t.TempDir())
	defer s.Close()

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Documents)
	assert.Equal(t, int64(3), st.Chunks)
	assert.Equal(t, 3, st.Vectors)
	assert.Equal(t, int64(3), st.Keywords)
	assert.Positive(t, st.DiskBytes)

	docs, err := s.Documents(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "docs/a.md", docs[0].SourcePath)
	assert.Equal(t, 2, docs[0].ChunkCount)
	assert.Equal(t, fileid.DocumentID("docs/a.md"), docs[0].ID)
}

func TestLookup_keywordMatches(t *testing.T) {
	s := seed(t, t.TempDir())
	defer s.Close()

	hits, err := s.Lookup(context.Background(), "incident", 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "docs/b.txt", hits[0].Chunk.SourcePath)
}

func TestLookup_disabled(t *testing.T) {
	opts := testOptions()
	opts.Keyword = false
	s, err := Create(context.Background(), t.TempDir(), opts)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Lookup(context.Background(), "x", 5, nil)
	assert.Error(t, err)
}

func TestDocumentsOf_groupsBySource(t *testing.T) {
	chunks := []models.Chunk{
		{SourcePath: "b.txt"}, {SourcePath: "a.txt"}, {SourcePath: "b.txt"},
	}
	docs := documentsOf(chunks)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.txt", docs[0].SourcePath)
	assert.Equal(t, 2, docs[0].ChunkCount)
	assert.Equal(t, 1, docs[1].ChunkCount)
}

// tiedIndex returns its ids with one shared score, in the order given.
type tiedIndex struct {
	vector.VectorIndex
	ids []string
}

func (ix *tiedIndex) Search(_ context.Context, _ []float32, k int) ([]*vector.VectorResult, error) {
	var out []*vector.VectorResult
	for _, id := range ix.ids[:min(k, len(ix.ids))] {
		out = append(out, &vector.VectorResult{ID: id, Score: 0.5})
	}
	return out, nil
}

func (ix *tiedIndex) Close() error { return nil }

func TestSearch_tiesKeepInsertionOrder(t *testing.T) {
	s := seed(t, t.TempDir())
	defer s.Close()
	s.vectors = &tiedIndex{ids: []string{
		fileid.ChunkID("docs/b.txt", 0),
		fileid.ChunkID("docs/a.md", 1),
		fileid.ChunkID("docs/a.md", 0),
	}}

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "alpha release notes", hits[0].Chunk.Text)
	assert.Equal(t, "beta rollout plan", hits[1].Chunk.Text)
	assert.Equal(t, "gamma incident review", hits[2].Chunk.Text)
}

func TestSource_chunksInOrder(t *testing.T) {
	s := seed(t, t.TempDir())
	defer s.Close()

	doc, chunks, err := s.Source(context.Background(), "./docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/a.md", doc.SourcePath)
	assert.Equal(t, 2, doc.ChunkCount)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "beta rollout plan", chunks[1].Text)

	_, _, err = s.Source(context.Background(), "docs/missing.md")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
