package availability

import (
	"context"
	"strings"

	"github.com/0x5457/product-concierge/internal/logging"
	"github.com/0x5457/product-concierge/internal/metrics"
	"github.com/0x5457/product-concierge/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const unknownStatus = "unknown"

type Service struct {
	Store *Store
}

// CheckAvailability lists one entry per shop stocking productID, in store
// order. A non-empty shopID restricts the search to that shop. Only the
// first inventory row for the product in each shop is reported.
func (s *Service) CheckAvailability(ctx context.Context, productID, shopID string) []models.AvailabilityEntry {
	matches := []models.AvailabilityEntry{}
	for _, shop := range s.Store.Shops {
		if shopID != "" && shop.ShopID != shopID {
			continue
		}
		for _, row := range shop.Inventory {
			if row.ProductID == productID {
				matches = append(matches, s.entry(shop, row))
				break
			}
		}
	}

	result := "found"
	if len(matches) == 0 {
		result = "empty"
	}
	metrics.AvailabilityRequestsTotal.WithLabelValues(result).Inc()
	logging.FromContext(ctx).Debug("availability checked",
		zap.String("product_id", productID),
		zap.String("shop_id", shopID),
		zap.Int("matches", len(matches)),
	)
	return matches
}

func (s *Service) entry(shop models.Shop, row models.InventoryEntry) models.AvailabilityEntry {
	status := row.Status
	if status == "" {
		status = unknownStatus
	}
	e := models.AvailabilityEntry{
		ShopID:               shop.ShopID,
		ShopName:             shop.Name,
		Status:               status,
		StatusLabel:          s.Label(status),
		Quantity:             row.Quantity,
		ViewingAvailable:     row.ViewingAvailable,
		ReservationSupported: row.ReservationSupported,
		TransferETADays:      row.TransferETADays,
		LastUpdated:          row.LastUpdated,
		Contact:              shop.Contact,
		Capabilities:         shop.Capabilities,
		OpeningHours:         shop.OpeningHours,
	}
	if shop.Location != nil {
		e.City = shop.Location.City
		e.Country = shop.Location.Country
	}
	return e
}

// Label resolves a status code through the legend, falling back to the
// code title-cased with underscores as spaces.
func (s *Service) Label(status string) string {
	if label, ok := s.Store.StatusLegend[status]; ok && label != "" {
		return label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}
