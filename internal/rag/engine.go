package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/merchantkit/storesync/internal/ai"
	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/vectorstore"
)

const (
	metaTenantID       = "tenant_id"
	metaKind           = "kind"
	metaSourceEntityID = "source_entity_id"
	metaChunkIndex     = "chunk_index"
	metaTotalChunks    = "total_chunks"
	metaPlaceholder    = "placeholder"

	placeholderEntityID = "__placeholder__"
	defaultLambda       = 0.7
)

// dataKinds are the kinds a tenant-wide query fans out over.
var dataKinds = []model.EntityKind{
	model.KindStore,
	model.KindProduct,
	model.KindOrder,
	model.KindCustomer,
	model.KindAnalytics,
}

// IndexingError marks a per-entity indexing failure. Callers isolate it so one
// bad entity never abandons the rest of a sync batch.
type IndexingError struct {
	Kind           model.EntityKind
	SourceEntityID string
	Err            error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing %s %s failed: %v", e.Kind, e.SourceEntityID, e.Err)
}

func (e *IndexingError) Unwrap() error {
	return e.Err
}

// Engine turns entities into embedded chunks in the vector index and answers
// similarity queries over them.
type Engine struct {
	embedder       *ai.Embedder
	index          vectorstore.Index
	chunkMaxSize   int
	placeholderTTL time.Duration

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewEngine(embedder *ai.Embedder, index vectorstore.Index, chunkMaxSize int) *Engine {
	if chunkMaxSize <= 0 {
		chunkMaxSize = 1000
	}
	return &Engine{
		embedder:       embedder,
		index:          index,
		chunkMaxSize:   chunkMaxSize,
		placeholderTTL: 30 * time.Second,
		done:           make(chan struct{}),
	}
}

// Close cancels pending placeholder cleanups and waits for them to settle.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

func Namespace(tenantID string, kind model.EntityKind) string {
	return fmt.Sprintf("tenant:%s:%s", tenantID, kind)
}

// IndexEntity builds the document, chunks it, embeds all chunks in one batched
// call, and upserts the vectors. A failure affects this entity only.
func (e *Engine) IndexEntity(ctx context.Context, entity model.Entity, tenantID string) error {
	doc := BuildDocument(entity, tenantID)
	if doc.Text == "" {
		logutil.GetLogger(ctx).Warn("entity produced empty document, skipping",
			zap.String("tenant_id", tenantID),
			zap.String("kind", string(entity.Kind())),
			zap.String("entity_id", entity.EntityID()),
		)
		return nil
	}
	chunks := chunksFromDocument(doc, e.chunkMaxSize)
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts, ai.TaskTypeDocument)
	if err != nil {
		return &IndexingError{Kind: doc.Kind, SourceEntityID: doc.SourceEntityID, Err: err}
	}
	records := make([]vectorstore.Record, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, vectorstore.Record{
			ID:      c.ChunkID(),
			Vector:  vectors[i],
			Content: c.Text,
			Metadata: map[string]string{
				metaTenantID:       c.TenantID,
				metaKind:           string(c.Kind),
				metaSourceEntityID: c.SourceEntityID,
				metaChunkIndex:     strconv.Itoa(c.Index),
				metaTotalChunks:    strconv.Itoa(c.Total),
			},
		})
	}
	// Cancellation gate: a force-unlocked job must not write after revocation.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.index.Upsert(ctx, Namespace(tenantID, doc.Kind), records); err != nil {
		return &IndexingError{Kind: doc.Kind, SourceEntityID: doc.SourceEntityID, Err: err}
	}
	return nil
}

// ReindexEntity deletes the entity's existing vectors before indexing anew.
// Delete-then-reindex keeps chunk count and ids consistent when the entity's
// text shrinks; vectors are never updated in place.
func (e *Engine) ReindexEntity(ctx context.Context, entity model.Entity, tenantID string) error {
	if err := e.DeleteEntity(ctx, tenantID, entity.Kind(), entity.EntityID()); err != nil {
		return err
	}
	return e.IndexEntity(ctx, entity, tenantID)
}

func (e *Engine) DeleteEntity(ctx context.Context, tenantID string, kind model.EntityKind, entityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.index.DeleteBySource(ctx, Namespace(tenantID, kind), entityID); err != nil {
		return &IndexingError{Kind: kind, SourceEntityID: entityID, Err: err}
	}
	return nil
}

func chunksFromDocument(doc model.Document, maxSize int) []model.Chunk {
	parts := SplitText(doc.Text, maxSize)
	chunks := make([]model.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, model.Chunk{
			DocumentID:     doc.ID,
			Index:          i,
			Total:          len(parts),
			Text:           part,
			TenantID:       doc.TenantID,
			Kind:           doc.Kind,
			SourceEntityID: doc.SourceEntityID,
		})
	}
	return chunks
}

type QueryOptions struct {
	TenantID  string
	Kind      model.EntityKind // empty: search every kind namespace
	TopK      int
	MinScore  float32
	Diversify bool
	Lambda    float32
}

type QueryResult struct {
	Results []model.RetrievalResult
	// Confidence is the mean score of the top 3 results (or fewer), the gate
	// callers use to decide whether to trust the retrieval at all.
	Confidence float32
}

// Query embeds the text once, gathers topK*2 candidates from the scoped
// namespaces, filters by MinScore and truncates to TopK.
func (e *Engine) Query(ctx context.Context, text string, opts QueryOptions) (*QueryResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	vector, err := e.embedder.Embed(ctx, text, ai.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	kinds := dataKinds
	if opts.Kind != "" {
		kinds = []model.EntityKind{opts.Kind}
	}
	candidateLimit := opts.TopK * 2
	var candidates []vectorstore.Match
	for _, kind := range kinds {
		matches, err := e.index.Query(ctx, Namespace(opts.TenantID, kind), vector, candidateLimit, nil)
		if err != nil {
			return nil, fmt.Errorf("query namespace %s: %w", Namespace(opts.TenantID, kind), err)
		}
		candidates = append(candidates, matches...)
	}

	filtered := candidates[:0]
	for _, m := range candidates {
		if m.Metadata[metaPlaceholder] == "true" {
			continue
		}
		if m.Score < opts.MinScore {
			continue
		}
		filtered = append(filtered, m)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	var selected []vectorstore.Match
	if opts.Diversify {
		lambda := opts.Lambda
		if lambda <= 0 {
			lambda = defaultLambda
		}
		selected = maximalMarginalRelevance(filtered, opts.TopK, lambda)
	} else {
		selected = filtered
		if len(selected) > opts.TopK {
			selected = selected[:opts.TopK]
		}
	}

	results := make([]model.RetrievalResult, 0, len(selected))
	for _, m := range selected {
		results = append(results, model.RetrievalResult{
			ChunkID:  m.ID,
			Text:     m.Content,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return &QueryResult{
		Results:    results,
		Confidence: confidence(results),
	}, nil
}

func confidence(results []model.RetrievalResult) float32 {
	if len(results) == 0 {
		return 0
	}
	n := len(results)
	if n > 3 {
		n = 3
	}
	var sum float32
	for _, r := range results[:n] {
		sum += r.Score
	}
	return sum / float32(n)
}

// InitializeNamespace writes one placeholder vector to force namespace
// materialization, then schedules its deletion. Cleanup failures are logged,
// never raised: the placeholder already did its job.
func (e *Engine) InitializeNamespace(ctx context.Context, tenantID string, kind model.EntityKind) error {
	ns := Namespace(tenantID, kind)
	vector, err := e.embedder.Embed(ctx, "namespace initialization placeholder", ai.TaskTypeDocument)
	if err != nil {
		return fmt.Errorf("embed placeholder for %s: %w", ns, err)
	}
	id := DocumentID(tenantID, kind, placeholderEntityID) + "#0"
	record := vectorstore.Record{
		ID:      id,
		Vector:  vector,
		Content: "namespace initialization placeholder",
		Metadata: map[string]string{
			metaTenantID:       tenantID,
			metaKind:           string(kind),
			metaSourceEntityID: placeholderEntityID,
			metaPlaceholder:    "true",
		},
	}
	if err := e.index.Upsert(ctx, ns, []vectorstore.Record{record}); err != nil {
		return fmt.Errorf("init namespace %s: %w", ns, err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		timer := time.NewTimer(e.placeholderTTL)
		defer timer.Stop()
		select {
		case <-e.done:
			return
		case <-timer.C:
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.index.DeleteIDs(cleanupCtx, ns, []string{id}); err != nil {
			logutil.GetLogger(cleanupCtx).Warn("placeholder cleanup failed",
				zap.String("namespace", ns),
				zap.Error(err),
			)
		}
	}()
	return nil
}
