package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"admissionsbot/internal/config"
	"admissionsbot/internal/domain"
	"admissionsbot/internal/logging"
)

// Retriever searches a fixed, ordered list of namespaces for a query.
type Retriever struct {
	embedder   domain.Embedder
	store      domain.VectorStore
	namespaces []string
	topK       int
	logger     *zap.Logger
}

func NewRetriever(embedder domain.Embedder, store domain.VectorStore, namespaces []string, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	ns := make([]string, len(namespaces))
	copy(ns, namespaces)
	return &Retriever{embedder: embedder, store: store, namespaces: ns, topK: topK, logger: logging.OrNop(logger)}
}

// Retrieve embeds the query once and concatenates the top-K documents of
// every namespace in configured order. Results are neither deduplicated nor
// re-ranked across namespaces. Any failure fails the whole retrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.Document, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs := make([]domain.Document, 0, len(r.namespaces)*r.topK)
	for _, ns := range r.namespaces {
		res, err := r.store.Search(ctx, ns, vec, r.topK)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", ns, err)
		}
		for _, sr := range res {
			docs = append(docs, sr.Document)
		}
		r.logger.Debug("searched namespace",
			zap.String("namespace", ns),
			zap.Int("k", r.topK),
			zap.Int("results", len(res)),
		)
	}
	return docs, nil
}
