package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/0x5457/product-concierge/internal/models"
)

// Guard checks every vector an embedder returns and reports any failure as
// a *models.EncodingError. A zero dim disables the length check.
type Guard struct {
	inner Embedder
	dim   int
}

func NewGuard(inner Embedder, dim int) *Guard {
	return &Guard{inner: inner, dim: dim}
}

func (g *Guard) ModelName() string { return g.inner.ModelName() }

func (g *Guard) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := g.inner.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, g.fail(err)
	}
	if len(vecs) != len(texts) {
		return nil, g.fail(fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
	}
	for i, v := range vecs {
		if err := g.check(v); err != nil {
			return nil, g.fail(fmt.Errorf("text %d: %w", i, err))
		}
	}
	return vecs, nil
}

func (g *Guard) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := g.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, g.fail(err)
	}
	if err := g.check(v); err != nil {
		return nil, g.fail(err)
	}
	return v, nil
}

func (g *Guard) check(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	if g.dim > 0 && len(v) != g.dim {
		return fmt.Errorf("%w: want %d, got %d", models.ErrDimensionMismatch, g.dim, len(v))
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("vector contains non-finite values")
		}
	}
	return nil
}

func (g *Guard) fail(err error) error {
	var encErr *models.EncodingError
	if errors.As(err, &encErr) {
		return err
	}
	return &models.EncodingError{Model: g.inner.ModelName(), Err: err}
}
