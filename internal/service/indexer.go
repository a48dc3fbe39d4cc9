package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"admissionsbot/internal/domain"
	"admissionsbot/internal/logging"
)

// ErrNoDocuments is returned when there is nothing to index.
var ErrNoDocuments = errors.New("no documents to index")

// Indexer embeds documents and writes them into one namespace of the store.
type Indexer struct {
	embedder domain.Embedder
	store    domain.VectorStore
	logger   *zap.Logger
}

func NewIndexer(embedder domain.Embedder, store domain.VectorStore, logger *zap.Logger) *Indexer {
	return &Indexer{embedder: embedder, store: store, logger: logging.OrNop(logger)}
}

// Index embeds all documents in one call and upserts them in one batch under
// fresh random ids. Re-indexing the same documents adds new entries; nothing
// is written if embedding fails.
func (ix *Indexer) Index(ctx context.Context, namespace string, docs []domain.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(docs))
	}

	entries := make([]domain.IndexedEntry, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = uuid.NewString()
		entries[i] = domain.IndexedEntry{ID: ids[i], Embedding: vectors[i], Document: d, Namespace: namespace}
	}
	if err := ix.store.Upsert(ctx, namespace, entries); err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", namespace, err)
	}
	ix.logger.Info("indexed documents",
		zap.String("namespace", namespace),
		zap.String("embedder", ix.embedder.Name()),
		zap.Int("count", len(entries)),
	)
	return ids, nil
}
