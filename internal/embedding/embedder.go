package embedding

import "admissionsbot/internal/domain"

// Embedder converts free text into a numeric vector representation.
// Documents and queries must be embedded by the same model.
type Embedder = domain.Embedder
