package vectorstore

import "context"

type Record struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

type Match struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Index is a namespace-scoped vector store. Namespaces partition vectors by
// tenant and entity kind and are created lazily on first write.
type Index interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]string) ([]Match, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
	DeleteBySource(ctx context.Context, namespace string, sourceEntityID string) error
	DeleteAll(ctx context.Context, namespace string) error
}
