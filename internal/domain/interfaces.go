package domain

import "context"

// Document is a normalized source record: the text that gets embedded plus
// unindexed metadata returned alongside a match.
type Document struct {
	Content  string
	Metadata map[string]string
}

// IndexedEntry is a document stored in one namespace of the vector index.
type IndexedEntry struct {
	ID        string
	Embedding []float32
	Document  Document
	Namespace string
}

// SearchResult represents a matching document with its similarity score.
type SearchResult struct {
	Document Document
	Score    float32
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry of a chat session.
type Message struct {
	Role    Role
	Content string
}

// Embedder converts free text into a numeric vector representation.
// The same model must be used for indexing and querying.
type Embedder interface {
	Name() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists embeddings in namespaces and supports similarity search.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, entries []IndexedEntry) error
	Search(ctx context.Context, namespace string, vector []float32, topK int) ([]SearchResult, error)
}

// Completer sends a single-turn prompt to a chat model.
type Completer interface {
	Complete(ctx context.Context, prompt, credential string) (string, error)
}

// Answerer runs one retrieval and answer cycle for a question.
type Answerer interface {
	Answer(ctx context.Context, query, credential string) (string, error)
}
