package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/product-concierge/internal/artifact"
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
	"github.com/0x5457/product-concierge/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableEmbedder maps known queries to fixed vectors.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *tableEmbedder) ModelName() string { return "table" }

func (e *tableEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func ptr(s string) *string { return &s }

func fixture(t *testing.T, rows [][]float32) (*Service, *tableEmbedder, string) {
	t.Helper()
	attrs := models.NewAttributes()
	attrs.Set("brand", "Cartier")
	products := []models.Product{
		{ID: "CR123", Name: "Tank", Description: "rectangular", Attributes: attrs, ArtifactURI: ptr("sub/CR123.png")},
		{ID: "OM1", Name: "Speedmaster", ArtifactURI: ptr("missing/x.png")},
		{ID: "RX9"},
	}
	cat := catalog.New(products)

	idx, err := memory.New(storage.Manifest{Rows: len(rows), Dimension: 2}, rows)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "CR123.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "RX9.jpg"), []byte("x"), 0o644))

	emb := &tableEmbedder{vectors: map[string][]float32{
		"square":  {0, 0},
		"chrono":  {3, 4},
		"between": {0.5, 0},
	}}
	return &Service{
		Embedder: emb,
		Index:    idx,
		Catalog:  cat,
		Resolver: artifact.New(dir, "http://127.0.0.1:9000/", nil),
	}, emb, dir
}

var threeRows = [][]float32{{0, 0}, {3, 4}, {1, 0}}

func ids(results []models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearchNonPositiveK(t *testing.T) {
	svc, emb, _ := fixture(t, threeRows)
	for _, k := range []int{0, -3} {
		results, err := svc.Search(context.Background(), "square", k)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Equal(t, 0, emb.calls)
}

func TestSearchOrderAndBounds(t *testing.T) {
	svc, _, _ := fixture(t, threeRows)
	ctx := context.Background()

	results, err := svc.Search(ctx, "square", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"CR123", "RX9", "OM1"}, ids(results))
	assert.Equal(t, []float32{0, 1, 25}, []float32{results[0].Distance, results[1].Distance, results[2].Distance})

	results, err = svc.Search(ctx, "square", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = svc.Search(ctx, "chrono", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"OM1"}, ids(results))
}

func TestSearchTieBreaksByRow(t *testing.T) {
	svc, _, _ := fixture(t, threeRows)
	results, err := svc.Search(context.Background(), "between", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, []string{"CR123", "RX9"}, ids(results))
}

func TestSearchIdempotent(t *testing.T) {
	svc, _, _ := fixture(t, threeRows)
	a, err := svc.Search(context.Background(), "chrono", 3)
	require.NoError(t, err)
	b, err := svc.Search(context.Background(), "chrono", 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSearchSkipsRowsOutsideCatalog(t *testing.T) {
	rows := [][]float32{{9, 9}, {9, 9}, {9, 9}, {0, 0}, {0, 1}}
	svc, _, _ := fixture(t, rows)
	results, err := svc.Search(context.Background(), "square", 3)
	require.NoError(t, err)
	// rows 3 and 4 rank first but do not exist in the catalog
	assert.Equal(t, []string{"CR123"}, ids(results))
}

func TestSearchImages(t *testing.T) {
	svc, _, _ := fixture(t, threeRows)
	results, err := svc.Search(context.Background(), "square", 3)
	require.NoError(t, err)

	tank := results[0]
	assert.Nil(t, tank.ArtifactURI)
	require.NotNil(t, tank.ImageURL)
	assert.Equal(t, "http://127.0.0.1:9000/CR123.png", *tank.ImageURL)
	assert.Equal(t, "Tank ![Tank](http://127.0.0.1:9000/CR123.png)", *tank.ImageMarkdown)

	// no name: the id labels the image
	rx := results[1]
	require.NotNil(t, rx.ImageMarkdown)
	assert.Equal(t, "RX9 ![RX9](http://127.0.0.1:9000/RX9.jpg)", *rx.ImageMarkdown)

	om := results[2]
	assert.Nil(t, om.ImageURL)
	assert.Nil(t, om.ImageMarkdown)

	raw, err := json.Marshal(om)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "artifact_uri")
	assert.NotContains(t, decoded, "image_url")
	assert.Equal(t, float64(25), decoded["distance"])
}

func TestSearchDoesNotMutateCatalog(t *testing.T) {
	svc, _, _ := fixture(t, threeRows)
	results, err := svc.Search(context.Background(), "square", 1)
	require.NoError(t, err)
	results[0].Name = "changed"
	results[0].Attributes.Set("brand", "changed")

	p, ok := svc.Catalog.At(0)
	require.True(t, ok)
	assert.Equal(t, "Tank", p.Name)
	brand, _ := p.Attributes.Get("brand")
	assert.Equal(t, "Cartier", brand)
	require.NotNil(t, p.ArtifactURI)
	assert.Equal(t, "sub/CR123.png", *p.ArtifactURI)
}

func TestSearchMaxK(t *testing.T) {
	svc, _, _ := fixture(t, threeRows)
	svc.MaxK = 2
	results, err := svc.Search(context.Background(), "square", 3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEncodingError(t *testing.T) {
	svc, emb, _ := fixture(t, threeRows)
	emb.err = errors.New("model not loaded")
	svc.Embedder = embeddings.NewGuard(emb, 2)

	_, err := svc.Search(context.Background(), "square", 3)
	assert.ErrorIs(t, err, models.ErrEncoding)
	var encErr *models.EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestSearchWithoutID(t *testing.T) {
	svc, _, dir := fixture(t, [][]float32{{0, 0}})
	svc.Catalog = catalog.New([]models.Product{{Name: "Unnamed"}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "match-0.png"), []byte("x"), 0o644))

	results, err := svc.Search(context.Background(), "square", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ImageURL)
	assert.Equal(t, "http://127.0.0.1:9000/match-0.png", *results[0].ImageURL)
	assert.Equal(t, "", results[0].ID)
}
