package vectorstore

import (
	"errors"

	"admissionsbot/internal/domain"
)

// ErrDimensionMismatch is returned when entries in one upsert disagree on vector size.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Storage persists vectors in namespaces and supports similarity search.
// Search returns at most topK results ordered by descending similarity and an
// empty slice, not an error, when the namespace holds nothing.
type Storage = domain.VectorStore

// CheckDimensions verifies that every entry carries a vector of the same, non-zero size.
func CheckDimensions(entries []domain.IndexedEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	dim := len(entries[0].Embedding)
	if dim == 0 {
		return 0, ErrDimensionMismatch
	}
	for _, e := range entries[1:] {
		if len(e.Embedding) != dim {
			return 0, ErrDimensionMismatch
		}
	}
	return dim, nil
}
