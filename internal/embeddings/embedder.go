package embeddings

import "context"

// Embedder turns text into fixed-length vectors. Implementations must return
// one vector per input text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
