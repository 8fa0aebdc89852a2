package models

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attributes keeps product attributes in the order they appear in the catalog file.
// The order feeds the embedding text, so it must survive decoding.
type Attributes = orderedmap.OrderedMap[string, string]

// NewAttributes returns an empty ordered attribute map.
func NewAttributes() *Attributes {
	return orderedmap.New[string, string]()
}

// Product is one catalog record. Fields the catalog carries beyond the known
// ones are kept in Extra and re-emitted verbatim.
type Product struct {
	ID          string
	Name        string
	Description string
	Attributes  *Attributes
	ArtifactURI *string
	Extra       map[string]json.RawMessage
}

var productKeys = map[string]struct{}{
	"id":           {},
	"name":         {},
	"description":  {},
	"attributes":   {},
	"artifact_uri": {},
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("product must be a JSON object")
	}
	*p = Product{}
	if err := decodeField(raw, "id", &p.ID); err != nil {
		return err
	}
	if err := decodeField(raw, "name", &p.Name); err != nil {
		return err
	}
	if err := decodeField(raw, "description", &p.Description); err != nil {
		return err
	}
	if v, ok := raw["attributes"]; ok && string(v) != "null" {
		attrs := NewAttributes()
		if err := json.Unmarshal(v, attrs); err != nil {
			return fmt.Errorf("decode attributes: %w", err)
		}
		p.Attributes = attrs
	}
	if v, ok := raw["artifact_uri"]; ok && string(v) != "null" {
		var uri string
		if err := json.Unmarshal(v, &uri); err != nil {
			return fmt.Errorf("decode artifact_uri: %w", err)
		}
		p.ArtifactURI = &uri
	}
	for k, v := range raw {
		if _, known := productKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	return nil
}

func decodeField(raw map[string]json.RawMessage, key string, dst *string) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fields())
}

func (p Product) fields() map[string]any {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.ID != "" {
		out["id"] = p.ID
	}
	if p.Name != "" {
		out["name"] = p.Name
	}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Attributes != nil {
		out["attributes"] = p.Attributes
	}
	if p.ArtifactURI != nil {
		out["artifact_uri"] = *p.ArtifactURI
	}
	return out
}

// Clone returns a deep copy so callers can edit the result without touching the catalog.
func (p Product) Clone() Product {
	c := p
	if p.Attributes != nil {
		c.Attributes = NewAttributes()
		for pair := p.Attributes.Oldest(); pair != nil; pair = pair.Next() {
			c.Attributes.Set(pair.Key, pair.Value)
		}
	}
	if p.ArtifactURI != nil {
		uri := *p.ArtifactURI
		c.ArtifactURI = &uri
	}
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// DisplayName is the product name, or its id when the name is missing.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// SearchResult is a product copy ranked by distance to a query. It never
// carries the raw artifact reference.
type SearchResult struct {
	Product
	Distance      float32
	ImageURL      *string
	ImageMarkdown *string
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	out := r.fields()
	delete(out, "artifact_uri")
	out["distance"] = r.Distance
	if r.ImageURL != nil {
		out["image_url"] = *r.ImageURL
	}
	if r.ImageMarkdown != nil {
		out["image_markdown"] = *r.ImageMarkdown
	}
	return json.Marshal(out)
}

type Location struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Shop is a boutique with its stock list. Contact, capabilities and opening
// hours are opaque to the service and passed through as stored.
type Shop struct {
	ShopID       string           `json:"shop_id"`
	Name         string           `json:"name"`
	Location     *Location        `json:"location,omitempty"`
	Contact      json.RawMessage  `json:"contact,omitempty"`
	Capabilities json.RawMessage  `json:"capabilities,omitempty"`
	OpeningHours json.RawMessage  `json:"opening_hours,omitempty"`
	Inventory    []InventoryEntry `json:"inventory"`
}

type InventoryEntry struct {
	ProductID            string  `json:"product_id"`
	Status               string  `json:"status"`
	Quantity             *int    `json:"quantity,omitempty"`
	ViewingAvailable     *bool   `json:"viewing_available,omitempty"`
	ReservationSupported *bool   `json:"reservation_supported,omitempty"`
	TransferETADays      *int    `json:"transfer_eta_days,omitempty"`
	LastUpdated          *string `json:"last_updated,omitempty"`
}

// StatusLegend maps inventory status codes to human labels.
type StatusLegend map[string]string

// AvailabilityEntry merges shop metadata with one inventory row.
type AvailabilityEntry struct {
	ShopID               string          `json:"shop_id"`
	ShopName             string          `json:"shop_name"`
	City                 string          `json:"city,omitempty"`
	Country              string          `json:"country,omitempty"`
	Status               string          `json:"status"`
	StatusLabel          string          `json:"status_label"`
	Quantity             *int            `json:"quantity,omitempty"`
	ViewingAvailable     *bool           `json:"viewing_available,omitempty"`
	ReservationSupported *bool           `json:"reservation_supported,omitempty"`
	TransferETADays      *int            `json:"transfer_eta_days,omitempty"`
	LastUpdated          *string         `json:"last_updated,omitempty"`
	Contact              json.RawMessage `json:"contact,omitempty"`
	Capabilities         json.RawMessage `json:"capabilities,omitempty"`
	OpeningHours         json.RawMessage `json:"opening_hours,omitempty"`
}

// Index build progress and stages
type IndexStage string

const (
	IndexStageLoad  IndexStage = "load"
	IndexStageEmbed IndexStage = "embed"
	IndexStageWrite IndexStage = "write"
	IndexStageDone  IndexStage = "done"
)

// IndexProgress represents streaming progress updates for index builds
type IndexProgress struct {
	Stage            IndexStage
	TotalProducts    int
	EmbeddedProducts int
	Message          string
	Percent          float32
}
