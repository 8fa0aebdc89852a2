package catalog_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `[
  {"id": "CR123", "name": "Tank Must", "description": "Rectangular steel watch",
   "attributes": {"strap": "leather", "case": "steel", "band": "black"},
   "artifact_uri": "watches/CR123.png", "price": 3100, "url": "https://example.com/cr123"},
  {"id": "OM456", "description": "Diver", "attributes": {}},
  {"id": "PP789", "name": "Calatrava"}
]`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := catalog.Load(writeCatalog(t, productsJSON))
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	p, ok := c.At(0)
	require.True(t, ok)
	assert.Equal(t, "CR123", p.ID)
	assert.Equal(t, "Tank Must", p.Name)
	require.NotNil(t, p.ArtifactURI)
	assert.Equal(t, "watches/CR123.png", *p.ArtifactURI)
	assert.JSONEq(t, `3100`, string(p.Extra["price"]))

	last, ok := c.At(2)
	require.True(t, ok)
	assert.Nil(t, last.ArtifactURI)
	assert.Nil(t, last.Attributes)

	_, ok = c.At(3)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)
}

func TestLoadErrors(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStartup))

	_, err = catalog.Load(writeCatalog(t, `{"not": "an array"}`))
	require.Error(t, err)
	var se *models.StartupError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "products", se.Resource)
}

func TestEmbedTextKeepsAttributeOrder(t *testing.T) {
	c, err := catalog.Load(writeCatalog(t, productsJSON))
	require.NoError(t, err)

	texts := c.Texts()
	assert.Equal(t, "Rectangular steel watch strap:leather case:steel band:black", texts[0])
	assert.Equal(t, "Diver", texts[1])
	assert.Equal(t, "", texts[2])
}

func TestAtReturnsCopy(t *testing.T) {
	c, err := catalog.Load(writeCatalog(t, productsJSON))
	require.NoError(t, err)

	p, _ := c.At(0)
	p.Name = "changed"
	p.Attributes.Set("strap", "rubber")
	*p.ArtifactURI = "elsewhere.png"

	again, _ := c.At(0)
	assert.Equal(t, "Tank Must", again.Name)
	strap, _ := again.Attributes.Get("strap")
	assert.Equal(t, "leather", strap)
	assert.Equal(t, "watches/CR123.png", *again.ArtifactURI)
}

func TestFingerprintTracksOrder(t *testing.T) {
	var products []models.Product
	require.NoError(t, json.Unmarshal([]byte(productsJSON), &products))

	a := catalog.New(products)
	b := catalog.New([]models.Product{products[1], products[0], products[2]})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), catalog.New(products).Fingerprint())
}
