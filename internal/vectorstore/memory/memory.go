package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"admissionsbot/internal/domain"
	"admissionsbot/internal/vectorstore"
)

// Storage is an in-process vector store backed by chromem-go.
// Each namespace is a chromem collection.
type Storage struct {
	mu   sync.Mutex
	db   *chromem.DB
	dims map[string]int
}

func NewStorage() *Storage {
	return &Storage{db: chromem.NewDB(), dims: make(map[string]int)}
}

// embeddings are always precomputed; a call means a caller skipped embedding.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("memory store: documents must carry embeddings")
}

func (s *Storage) Upsert(ctx context.Context, namespace string, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	dim, err := vectorstore.CheckDimensions(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if have, ok := s.dims[namespace]; ok && have != dim {
		return fmt.Errorf("%w: namespace %s holds %d, got %d", vectorstore.ErrDimensionMismatch, namespace, have, dim)
	}
	coll, err := s.db.GetOrCreateCollection(namespace, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("collection %s: %w", namespace, err)
	}
	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Content:   e.Document.Content,
			Metadata:  copyMetadata(e.Document.Metadata),
			Embedding: e.Embedding,
		}
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents to %s: %w", namespace, err)
	}
	s.dims[namespace] = dim
	return nil
}

func (s *Storage) Search(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	coll := s.db.GetCollection(namespace, noEmbedding)
	if coll == nil {
		return []domain.SearchResult{}, nil
	}
	// chromem rejects nResults larger than the collection
	n := coll.Count()
	if n == 0 {
		return []domain.SearchResult{}, nil
	}
	if topK > n {
		topK = n
	}
	res, err := coll.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", namespace, err)
	}
	out := make([]domain.SearchResult, 0, len(res))
	for _, r := range res {
		out = append(out, domain.SearchResult{
			Document: domain.Document{Content: r.Content, Metadata: copyMetadata(r.Metadata)},
			Score:    r.Similarity,
		})
	}
	return out, nil
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
