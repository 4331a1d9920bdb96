package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merchantkit/storesync/internal/model"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
	"github.com/merchantkit/storesync/internal/rag"
)

type fakeRetriever struct {
	result *rag.QueryResult
	opts   rag.QueryOptions
}

func (f *fakeRetriever) Query(ctx context.Context, text string, opts rag.QueryOptions) (*rag.QueryResult, error) {
	f.opts = opts
	return f.result, nil
}

func TestGetRelevantContextAboveThreshold(t *testing.T) {
	retriever := &fakeRetriever{result: &rag.QueryResult{
		Results: []model.RetrievalResult{
			{ChunkID: "a#0", Text: "Blue ceramic mug, $12.", Score: 0.91},
			{ChunkID: "b#0", Text: "Free shipping over $50.", Score: 0.82},
		},
		Confidence: 0.86,
	}}
	svc := NewContextService(retriever, 5, 0.3, 0.7)

	res, err := svc.GetRelevantContext(context.Background(), "t1", "do you sell mugs", "")
	require.NoError(t, err)
	require.True(t, res.Answerable)
	require.Equal(t, "Blue ceramic mug, $12.\n\nFree shipping over $50.", res.Context)
	require.Len(t, res.Sources, 2)
	require.InDelta(t, 0.86, res.Confidence, 1e-6)
	require.True(t, retriever.opts.Diversify)
	require.Equal(t, float32(0.3), retriever.opts.MinScore)
}

func TestGetRelevantContextBelowThreshold(t *testing.T) {
	retriever := &fakeRetriever{result: &rag.QueryResult{
		Results:    []model.RetrievalResult{{ChunkID: "a#0", Text: "weak match", Score: 0.4}},
		Confidence: 0.4,
	}}
	svc := NewContextService(retriever, 5, 0.3, 0.7)

	res, err := svc.GetRelevantContext(context.Background(), "t1", "warranty policy", "")
	require.NoError(t, err)
	require.False(t, res.Answerable)
	require.Equal(t, NoRelevantInformation, res.Context)
	require.Empty(t, res.Sources)
}

func TestGetRelevantContextEmptyQuery(t *testing.T) {
	svc := NewContextService(&fakeRetriever{}, 5, 0.3, 0.7)
	_, err := svc.GetRelevantContext(context.Background(), "t1", "   ", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestSearchSkipsConfidenceGate(t *testing.T) {
	retriever := &fakeRetriever{result: &rag.QueryResult{
		Results:    []model.RetrievalResult{{ChunkID: "a#0", Text: "weak match", Score: 0.35}},
		Confidence: 0.35,
	}}
	svc := NewContextService(retriever, 5, 0.3, 0.7)

	results, err := svc.Search(context.Background(), "t1", "mug", model.KindProduct, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 3, retriever.opts.TopK)
	require.Equal(t, model.KindProduct, retriever.opts.Kind)
	require.False(t, retriever.opts.Diversify)
}
