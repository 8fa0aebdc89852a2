package search

import (
	"context"
	"fmt"
	"time"

	"github.com/0x5457/product-concierge/internal/artifact"
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/logging"
	"github.com/0x5457/product-concierge/internal/metrics"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
	"go.uber.org/zap"
)

const DefaultK = 3

// Service turns a text query into ranked catalog products with resolved images.
// All dependencies are read-only, so one Service serves concurrent calls.
type Service struct {
	Embedder embeddings.Embedder
	Index    storage.VectorIndex
	Catalog  *catalog.Catalog
	Resolver *artifact.Resolver
	// MaxK caps k; zero means no cap beyond the index size.
	MaxK int
}

// Search embeds query and returns at most k products ordered by distance.
// Index rows outside the catalog are skipped. Encoder failures are returned
// as *models.EncodingError.
func (s *Service) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	start := time.Now()
	results, err := s.search(ctx, query, k)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResults.Observe(float64(len(results)))
	}
	return results, err
}

func (s *Service) search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return []models.SearchResult{}, nil
	}
	if s.MaxK > 0 && k > s.MaxK {
		k = s.MaxK
	}

	qvec, err := s.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.Index.Search(ctx, qvec, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	logger := logging.FromContext(ctx)
	results := make([]models.SearchResult, 0, len(hits))
	for rank, hit := range hits {
		product, ok := s.Catalog.At(hit.Row)
		if !ok {
			logger.Debug("index row outside catalog", zap.Int("row", hit.Row), zap.Int("catalog_size", s.Catalog.Len()))
			continue
		}
		results = append(results, s.assemble(product, hit, rank))
	}
	logger.Debug("search completed",
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

func (s *Service) assemble(product models.Product, hit storage.Hit, rank int) models.SearchResult {
	ref := product.ArtifactURI
	product.ArtifactURI = nil

	productID := product.ID
	if productID == "" {
		productID = fmt.Sprintf("match-%d", rank)
	}
	result := models.SearchResult{Product: product, Distance: hit.Distance}
	if s.Resolver == nil {
		return result
	}
	path, ok := s.Resolver.Resolve(ref, productID)
	if !ok {
		return result
	}
	url := s.Resolver.BuildURL(path)
	name := product.Name
	if name == "" {
		name = productID
	}
	md := artifact.Markdown(name, url)
	result.ImageURL = &url
	result.ImageMarkdown = &md
	return result
}
