// Package catalog holds the ordered product list that backs the vector index.
// Row i of the index refers to Products()[i]; the order is never changed after load.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/util"
)

type Catalog struct {
	products    []models.Product
	fingerprint string
}

// Load reads an ordered JSON array of products.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewStartupError("products", path, err)
	}
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, models.NewStartupError("products", path, fmt.Errorf("parse: %w", err))
	}
	return New(products), nil
}

// New builds a catalog from products in index row order.
func New(products []models.Product) *Catalog {
	c := &Catalog{products: products}
	c.fingerprint = fingerprint(products)
	return c
}

func (c *Catalog) Len() int { return len(c.products) }

// At returns a copy of the product at row i. ok is false when i is out of range.
func (c *Catalog) At(i int) (models.Product, bool) {
	if i < 0 || i >= len(c.products) {
		return models.Product{}, false
	}
	return c.products[i].Clone(), true
}

// Products returns copies of all products in row order.
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Clone()
	}
	return out
}

// Fingerprint identifies the catalog content and order. The index builder
// records it so a stale index is caught at startup.
func (c *Catalog) Fingerprint() string { return c.fingerprint }

// Texts returns the embedding input of every product in row order.
func (c *Catalog) Texts() []string {
	texts := make([]string, len(c.products))
	for i, p := range c.products {
		texts[i] = EmbedText(p)
	}
	return texts
}

// EmbedText is the description followed by key:value attribute tokens in insertion order.
func EmbedText(p models.Product) string {
	var b strings.Builder
	b.WriteString(p.Description)
	b.WriteString(" ")
	if p.Attributes != nil {
		first := true
		for pair := p.Attributes.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteString(" ")
			}
			first = false
			b.WriteString(pair.Key)
			b.WriteString(":")
			b.WriteString(pair.Value)
		}
	}
	return strings.TrimSpace(b.String())
}

func fingerprint(products []models.Product) string {
	parts := make([]string, 0, 2*len(products)+1)
	parts = append(parts, strconv.Itoa(len(products)))
	for _, p := range products {
		parts = append(parts, p.ID, EmbedText(p))
	}
	return util.Fingerprint(parts...)
}
