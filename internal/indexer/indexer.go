package indexer

import (
	"context"

	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/models"
)

// Indexer builds the vector index for a catalog. Row i of the written index
// belongs to product i of the catalog.
type Indexer interface {
	Build(ctx context.Context, cat *catalog.Catalog, indexPath string) error
	BuildProgress(ctx context.Context, cat *catalog.Catalog, indexPath string) (<-chan models.IndexProgress, <-chan error)
}
