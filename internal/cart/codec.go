package cart

import (
	"encoding/json"
	"fmt"

	"github.com/pscheid92/foodcart/internal/domain"
)

// storedLine is the persisted shape of a cart line. The field names predate
// CartLine and must stay as they are for previously stored carts to load.
type storedLine struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	Image        string  `json:"image,omitempty"`
	RestaurantID int     `json:"restaurantId"`
}

// Encode serializes lines in stored form. An empty cart encodes as "[]".
func Encode(lines []domain.CartLine) (string, error) {
	out := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, storedLine{
			ID:           l.ProductID,
			Name:         l.Name,
			Price:        l.UnitPrice,
			Quantity:     l.Quantity,
			Image:        l.Image,
			RestaurantID: l.RestaurantID,
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode cart: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored cart. It does not check cart invariants; see validate.
func Decode(data string) ([]domain.CartLine, error) {
	var in []storedLine
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(in))
	for _, s := range in {
		lines = append(lines, domain.CartLine{
			ProductID:    s.ID,
			Name:         s.Name,
			UnitPrice:    s.Price,
			Quantity:     s.Quantity,
			Image:        s.Image,
			RestaurantID: s.RestaurantID,
		})
	}
	return lines, nil
}

// validate checks the invariants a restored cart must satisfy.
func validate(lines []domain.CartLine) error {
	seen := make(map[string]struct{}, len(lines))
	for i, l := range lines {
		if err := validateLine(l); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		if l.Quantity < 1 {
			return fmt.Errorf("line %d (%s): %w", i, l.ProductID, domain.ErrInvalidQuantity)
		}
		if _, dup := seen[l.ProductID]; dup {
			return fmt.Errorf("line %d: duplicate product %s: %w", i, l.ProductID, domain.ErrInvalidLine)
		}
		seen[l.ProductID] = struct{}{}
		if l.RestaurantID != lines[0].RestaurantID {
			return fmt.Errorf("line %d: restaurant %d differs from %d: %w", i, l.RestaurantID, lines[0].RestaurantID, domain.ErrInvalidLine)
		}
	}
	return nil
}

func validateLine(l domain.CartLine) error {
	if l.ProductID == "" {
		return fmt.Errorf("empty product id: %w", domain.ErrInvalidLine)
	}
	if l.UnitPrice < 0 {
		return fmt.Errorf("negative price for %s: %w", l.ProductID, domain.ErrInvalidLine)
	}
	return nil
}
