// Package availability answers boutique stock questions from the static
// inventory store.
package availability

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/0x5457/product-concierge/internal/models"
)

// Store is the decoded inventory file.
type Store struct {
	Shops        []models.Shop       `json:"shops"`
	StatusLegend models.StatusLegend `json:"status_legend"`
}

// LoadStore reads the inventory file at path.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, models.NewStartupError("store", path, err)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, models.NewStartupError("store", path, err)
	}
	if store.StatusLegend == nil {
		store.StatusLegend = models.StatusLegend{}
	}
	return &store, nil
}
