package service

import (
	"context"
	"strings"

	"github.com/merchantkit/storesync/internal/model"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
	"github.com/merchantkit/storesync/internal/rag"
)

// NoRelevantInformation is returned as the context text when retrieval finds
// nothing trustworthy. Downstream assistants key off this exact string rather
// than hallucinating from weak matches.
const NoRelevantInformation = "no relevant information"

// Retriever is the query side of the retrieval engine.
type Retriever interface {
	Query(ctx context.Context, text string, opts rag.QueryOptions) (*rag.QueryResult, error)
}

type ContextService struct {
	engine       Retriever
	topK         int
	minScore     float32
	contextScore float32
}

func NewContextService(engine Retriever, topK int, minScore, contextScore float32) *ContextService {
	if topK <= 0 {
		topK = 5
	}
	return &ContextService{
		engine:       engine,
		topK:         topK,
		minScore:     minScore,
		contextScore: contextScore,
	}
}

type ContextResult struct {
	Answerable bool                    `json:"answerable"`
	Context    string                  `json:"context"`
	Confidence float32                 `json:"confidence"`
	Sources    []model.RetrievalResult `json:"sources,omitempty"`
}

// GetRelevantContext retrieves chunks for an assistant prompt. Results only
// count as usable when overall confidence clears the context threshold;
// below it, the caller gets the sentinel and no sources.
func (s *ContextService) GetRelevantContext(ctx context.Context, tenantID, query string, kind model.EntityKind) (*ContextResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, appErr.ErrInvalid
	}
	res, err := s.engine.Query(ctx, query, rag.QueryOptions{
		TenantID:  tenantID,
		Kind:      kind,
		TopK:      s.topK,
		MinScore:  s.minScore,
		Diversify: true,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 || res.Confidence < s.contextScore {
		return &ContextResult{
			Answerable: false,
			Context:    NoRelevantInformation,
			Confidence: res.Confidence,
		}, nil
	}
	texts := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		texts = append(texts, r.Text)
	}
	return &ContextResult{
		Answerable: true,
		Context:    strings.Join(texts, "\n\n"),
		Confidence: res.Confidence,
		Sources:    res.Results,
	}, nil
}

// Search is the raw retrieval surface: score-filtered matches without the
// confidence gate, for debugging and tooling.
func (s *ContextService) Search(ctx context.Context, tenantID, query string, kind model.EntityKind, topK int) ([]model.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, appErr.ErrInvalid
	}
	if topK <= 0 {
		topK = s.topK
	}
	res, err := s.engine.Query(ctx, query, rag.QueryOptions{
		TenantID: tenantID,
		Kind:     kind,
		TopK:     topK,
		MinScore: s.minScore,
	})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}
