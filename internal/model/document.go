package model

import (
	"fmt"
	"time"
)

// Document is the normalized text form of one entity snapshot. Re-derived,
// never mutated, on resync.
type Document struct {
	ID             string
	TenantID       string
	Kind           EntityKind
	SourceEntityID string
	Text           string
	CreatedAt      time.Time
}

type Chunk struct {
	DocumentID     string
	Index          int
	Total          int
	Text           string
	TenantID       string
	Kind           EntityKind
	SourceEntityID string
}

// ChunkID is the stable vector id for a chunk: documentID#index.
func (c Chunk) ChunkID() string {
	return fmt.Sprintf("%s#%d", c.DocumentID, c.Index)
}

type RetrievalResult struct {
	ChunkID  string
	Text     string
	Score    float32
	Metadata map[string]string
}
