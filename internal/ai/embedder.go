package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

// Embedder binds a provider to one model and fronts it with an expirable LRU
// keyed by content hash, so re-indexing unchanged entities costs no API calls.
type Embedder struct {
	provider IEmbedProvider
	model    string
	timeout  time.Duration
	cache    *expirable.LRU[string, []float32]
}

func NewEmbedder(provider IEmbedProvider, model string, timeout time.Duration, cacheSize int) *Embedder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var cache *expirable.LRU[string, []float32]
	if cacheSize > 0 {
		cache = expirable.NewLRU[string, []float32](cacheSize, nil, 2*time.Hour)
	}
	return &Embedder{
		provider: provider,
		model:    model,
		timeout:  timeout,
		cache:    cache,
	}
}

func (e *Embedder) ModelName() string {
	return e.model
}

func (e *Embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order. Cached texts
// are served locally; only misses reach the provider, in a single call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if cached, ok := e.cacheGet(taskType, text); ok {
			vectors[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	fetched, err := e.provider.EmbedBatch(callCtx, e.model, missTexts, taskType)
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d: %w", len(missTexts), err)
	}
	if len(fetched) != len(missTexts) {
		return nil, fmt.Errorf("provider %s returned %d embeddings for %d texts", e.provider.Name(), len(fetched), len(missTexts))
	}
	for j, vec := range fetched {
		vectors[missIdx[j]] = vec
		e.cachePut(taskType, missTexts[j], vec)
	}
	logutil.GetLogger(ctx).Debug("embedded batch",
		zap.Int("total", len(texts)),
		zap.Int("cache_hits", len(texts)-len(missTexts)),
		zap.String("model", e.model),
	)
	return vectors, nil
}

func (e *Embedder) cacheGet(taskType, text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(cacheKey(taskType, text))
}

func (e *Embedder) cachePut(taskType, text string, vec []float32) {
	if e.cache == nil {
		return
	}
	e.cache.Add(cacheKey(taskType, text), vec)
}

func cacheKey(taskType, text string) string {
	sum := sha256.Sum256([]byte(taskType + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
