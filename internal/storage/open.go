package storage

import (
	"errors"
	"fmt"

	"github.com/0x5457/product-concierge/internal/models"
	"go.uber.org/zap"
)

// Expectation is what the serving process knows about the catalog and
// embedder an index must agree with.
type Expectation struct {
	Rows        int
	Fingerprint string
	Dimension   int // 0 skips the check
	Strict      bool
}

// Check validates idx against want. Catalog mismatches are fatal only in
// strict mode and logged otherwise; row lookups still skip positions past the
// end of the catalog. Dimension mismatches are always fatal.
func Check(idx VectorIndex, want Expectation, path string, logger *zap.Logger) error {
	if want.Dimension > 0 && idx.Len() > 0 && idx.Dimension() != want.Dimension {
		return models.NewStartupError("index", path, fmt.Errorf("%w: index has %d, embedder produces %d",
			models.ErrDimensionMismatch, idx.Dimension(), want.Dimension))
	}
	if err := Validate(idx, want.Rows, want.Fingerprint); err != nil {
		if want.Strict || !errors.Is(err, models.ErrCatalogMismatch) {
			return models.NewStartupError("index", path, err)
		}
		logger.Warn("index does not match catalog, serving anyway", zap.Error(err))
	}
	return nil
}
