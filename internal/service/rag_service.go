package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"admissionsbot/internal/domain"
	"admissionsbot/internal/logging"
)

// RAGService wires indexing, retrieval and answer composition together.
type RAGService struct {
	indexer   *Indexer
	retriever *Retriever
	composer  *Composer
	logger    *zap.Logger
}

func NewRAGService(embedder domain.Embedder, store domain.VectorStore, completer domain.Completer, namespaces []string, topK int, logger *zap.Logger) *RAGService {
	logger = logging.OrNop(logger)
	return &RAGService{
		indexer:   NewIndexer(embedder, store, logger),
		retriever: NewRetriever(embedder, store, namespaces, topK, logger),
		composer:  NewComposer(completer),
		logger:    logger,
	}
}

// IngestDocuments indexes docs into namespace and returns the new entry ids.
func (s *RAGService) IngestDocuments(ctx context.Context, namespace string, docs []domain.Document) ([]string, error) {
	return s.indexer.Index(ctx, namespace, docs)
}

// Retrieve returns the combined retrieved set for query.
func (s *RAGService) Retrieve(ctx context.Context, query string) ([]domain.Document, error) {
	return s.retriever.Retrieve(ctx, query)
}

// Answer runs one retrieval and compose cycle. A missing credential fails
// before any provider is called.
func (s *RAGService) Answer(ctx context.Context, query, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}
	ctx = domain.WithCredential(ctx, credential)
	docs, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	s.logger.Debug("retrieved documents", zap.Int("count", len(docs)))
	return s.composer.Compose(ctx, docs, query, credential)
}
