package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/0x5457/product-concierge/internal/models"
)

// Hit is one nearest-neighbour match: a catalog row and its squared L2
// distance to the query.
type Hit struct {
	Row      int
	Distance float32
}

// Manifest describes how an index was built so it can be checked against
// the catalog it is served with.
type Manifest struct {
	Rows               int
	Dimension          int
	CatalogFingerprint string
	Model              string
}

// VectorIndex is a read-only nearest-neighbour index over catalog rows.
// Search returns at most min(k, Len()) hits ordered by ascending distance,
// ties broken by ascending row. k <= 0 yields no hits.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Len() int
	Dimension() int
	Manifest() Manifest
	Close() error
}

// IndexWriter persists a complete index to path, replacing any previous file.
// vectors[i] belongs to catalog row i.
type IndexWriter interface {
	Write(ctx context.Context, path string, manifest Manifest, vectors [][]float32) error
}

// Validate reports whether idx was built from a catalog with the given row
// count and fingerprint.
func Validate(idx VectorIndex, rows int, fingerprint string) error {
	if idx.Len() != rows {
		return fmt.Errorf("%w: index has %d rows, catalog has %d", models.ErrCatalogMismatch, idx.Len(), rows)
	}
	if fp := idx.Manifest().CatalogFingerprint; fp != "" && fp != fingerprint {
		return fmt.Errorf("%w: catalog fingerprint %.12s, index built from %.12s",
			models.ErrCatalogMismatch, fingerprint, fp)
	}
	return nil
}

// CheckVectors verifies that every vector has the manifest dimension.
func CheckVectors(manifest Manifest, vectors [][]float32) error {
	if len(vectors) != manifest.Rows {
		return fmt.Errorf("manifest declares %d rows, got %d vectors", manifest.Rows, len(vectors))
	}
	for i, v := range vectors {
		if len(v) != manifest.Dimension {
			return fmt.Errorf("%w: row %d has %d values, want %d",
				models.ErrDimensionMismatch, i, len(v), manifest.Dimension)
		}
	}
	return nil
}

// SquaredL2 is the squared euclidean distance between equal-length vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// SortHits orders hits by distance, then row.
func SortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Row < hits[j].Row
	})
}
