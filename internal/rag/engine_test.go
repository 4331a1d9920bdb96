package rag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merchantkit/storesync/internal/ai"
	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/vectorstore"
)

type stubEmbedProvider struct {
	err   error
	calls int
}

func (s *stubEmbedProvider) Name() string { return "stub" }

func (s *stubEmbedProvider) EmbedBatch(ctx context.Context, embedModel string, texts []string, taskType string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(len(text)), 0.5})
	}
	return out, nil
}

type memIndex struct {
	mu      sync.Mutex
	records map[string]map[string]vectorstore.Record // namespace -> id -> record
	canned  map[string][]vectorstore.Match
	failUp  error
}

func newMemIndex() *memIndex {
	return &memIndex{
		records: make(map[string]map[string]vectorstore.Record),
		canned:  make(map[string][]vectorstore.Match),
	}
}

func (m *memIndex) Upsert(ctx context.Context, ns string, records []vectorstore.Record) error {
	if m.failUp != nil {
		return m.failUp
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[ns] == nil {
		m.records[ns] = make(map[string]vectorstore.Record)
	}
	for _, rec := range records {
		m.records[ns][rec.ID] = rec
	}
	return nil
}

func (m *memIndex) Query(ctx context.Context, ns string, vector []float32, topK int, filter map[string]string) ([]vectorstore.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.canned[ns]
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *memIndex) DeleteIDs(ctx context.Context, ns string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records[ns], id)
	}
	return nil
}

func (m *memIndex) DeleteBySource(ctx context.Context, ns string, sourceEntityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records[ns] {
		if rec.Metadata["source_entity_id"] == sourceEntityID {
			delete(m.records[ns], id)
		}
	}
	return nil
}

func (m *memIndex) DeleteAll(ctx context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, ns)
	return nil
}

func (m *memIndex) count(ns string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[ns])
}

func newTestEngine(index vectorstore.Index, maxChunk int) *Engine {
	embedder := ai.NewEmbedder(&stubEmbedProvider{}, "test-model", time.Second, 0)
	return NewEngine(embedder, index, maxChunk)
}

func TestIndexEntity_OneVectorPerChunk(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 40)
	defer engine.Close()

	err := engine.IndexEntity(context.Background(), sampleProduct(), "t-1")
	require.NoError(t, err)

	ns := Namespace("t-1", model.KindProduct)
	require.Greater(t, index.count(ns), 1)
	for _, rec := range index.records[ns] {
		require.Equal(t, "t-1", rec.Metadata["tenant_id"])
		require.Equal(t, "product", rec.Metadata["kind"])
		require.Equal(t, "p-1", rec.Metadata["source_entity_id"])
		require.NotEmpty(t, rec.Metadata["chunk_index"])
		require.NotEmpty(t, rec.Metadata["total_chunks"])
	}
}

func TestReindexEntity_Idempotent(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 40)
	defer engine.Close()

	ctx := context.Background()
	ns := Namespace("t-1", model.KindProduct)

	require.NoError(t, engine.IndexEntity(ctx, sampleProduct(), "t-1"))
	first := index.count(ns)
	require.NoError(t, engine.ReindexEntity(ctx, sampleProduct(), "t-1"))
	require.Equal(t, first, index.count(ns))
}

func TestReindexEntity_ShrunkEntityLeavesNoStaleChunks(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 40)
	defer engine.Close()

	ctx := context.Background()
	ns := Namespace("t-1", model.KindProduct)

	require.NoError(t, engine.IndexEntity(ctx, sampleProduct(), "t-1"))
	big := index.count(ns)

	small := model.Product{ID: "p-1", Title: "Canvas Tote"}
	require.NoError(t, engine.ReindexEntity(ctx, small, "t-1"))
	require.Less(t, index.count(ns), big)
}

func TestIndexEntity_EmbeddingFailureIsIndexingError(t *testing.T) {
	index := newMemIndex()
	embedder := ai.NewEmbedder(&stubEmbedProvider{err: errors.New("quota exceeded")}, "test-model", time.Second, 0)
	engine := NewEngine(embedder, index, 40)
	defer engine.Close()

	err := engine.IndexEntity(context.Background(), sampleProduct(), "t-1")
	var idxErr *IndexingError
	require.ErrorAs(t, err, &idxErr)
	require.Equal(t, model.KindProduct, idxErr.Kind)
	require.Equal(t, "p-1", idxErr.SourceEntityID)
}

func TestIndexEntity_CancelledContextWritesNothing(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 40)
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.IndexEntity(ctx, sampleProduct(), "t-1")
	require.Error(t, err)
	require.Zero(t, index.count(Namespace("t-1", model.KindProduct)))
}

func cannedMatches(scores ...float32) []vectorstore.Match {
	out := make([]vectorstore.Match, 0, len(scores))
	for i, s := range scores {
		out = append(out, vectorstore.Match{
			ID:      "m-" + string(rune('a'+i)),
			Content: "content " + string(rune('a'+i)),
			Score:   s,
		})
	}
	return out
}

func TestQuery_FiltersBelowMinScore(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 100)
	defer engine.Close()

	index.canned[Namespace("t-1", model.KindProduct)] = cannedMatches(0.65, 0.5, 0.2)

	res, err := engine.Query(context.Background(), "totes", QueryOptions{
		TenantID: "t-1",
		Kind:     model.KindProduct,
		TopK:     5,
		MinScore: 0.7,
	})
	require.NoError(t, err)
	require.Empty(t, res.Results)
	require.Zero(t, res.Confidence)
}

func TestQuery_TruncatesAndReportsConfidence(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 100)
	defer engine.Close()

	index.canned[Namespace("t-1", model.KindProduct)] = cannedMatches(0.9, 0.8, 0.7, 0.6, 0.5)

	res, err := engine.Query(context.Background(), "totes", QueryOptions{
		TenantID: "t-1",
		Kind:     model.KindProduct,
		TopK:     2,
		MinScore: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	require.Equal(t, float32(0.9), res.Results[0].Score)
	// confidence is the mean of the top results (2 here, fewer than 3 kept)
	require.InDelta(t, 0.85, res.Confidence, 1e-6)
}

func TestQuery_SkipsPlaceholders(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 100)
	defer engine.Close()

	ns := Namespace("t-1", model.KindProduct)
	index.canned[ns] = []vectorstore.Match{
		{ID: "ph", Content: "placeholder", Score: 0.99, Metadata: map[string]string{"placeholder": "true"}},
		{ID: "real", Content: "real chunk", Score: 0.8},
	}

	res, err := engine.Query(context.Background(), "totes", QueryOptions{
		TenantID: "t-1",
		Kind:     model.KindProduct,
		TopK:     5,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	require.Equal(t, "real", res.Results[0].ChunkID)
}

func TestQuery_DiversifyKeepsTopResult(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 100)
	defer engine.Close()

	ns := Namespace("t-1", model.KindProduct)
	index.canned[ns] = []vectorstore.Match{
		{ID: "a", Content: "red canvas tote bag", Score: 0.9},
		{ID: "b", Content: "red canvas tote bag", Score: 0.89},
		{ID: "c", Content: "blue leather wallet", Score: 0.6},
	}

	res, err := engine.Query(context.Background(), "bags", QueryOptions{
		TenantID:  "t-1",
		Kind:      model.KindProduct,
		TopK:      2,
		Diversify: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	require.Equal(t, "a", res.Results[0].ChunkID)
	// the near-duplicate is penalized in favor of the dissimilar candidate
	require.Equal(t, "c", res.Results[1].ChunkID)
}

func TestInitializeNamespace_PlaceholderCleanedUp(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 100)
	engine.placeholderTTL = 10 * time.Millisecond
	defer engine.Close()

	ns := Namespace("t-9", model.KindProduct)
	require.NoError(t, engine.InitializeNamespace(context.Background(), "t-9", model.KindProduct))
	require.Equal(t, 1, index.count(ns))

	require.Eventually(t, func() bool {
		return index.count(ns) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEngineClose_CancelsPendingCleanup(t *testing.T) {
	index := newMemIndex()
	engine := newTestEngine(index, 100)
	engine.placeholderTTL = time.Hour

	ns := Namespace("t-9", model.KindProduct)
	require.NoError(t, engine.InitializeNamespace(context.Background(), "t-9", model.KindProduct))
	engine.Close()
	require.Equal(t, 1, index.count(ns))
}
