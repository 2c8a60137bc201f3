package domain

// CartLine is one product entry in the cart.
type CartLine struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
	Image        string  `json:"image,omitempty"`
	RestaurantID int     `json:"restaurantId"`
}

// Subtotal returns UnitPrice * Quantity.
func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// CartSnapshot is a read-only copy of the cart with derived totals.
type CartSnapshot struct {
	Items         []CartLine `json:"items"`
	ItemCount     int        `json:"itemCount"`
	TotalPrice    float64    `json:"totalPrice"`
	RestaurantID  int        `json:"restaurantId,omitempty"`
	HasRestaurant bool       `json:"hasRestaurant"`
	IsLoading     bool       `json:"isLoading"`
}

// AddStatus tells the caller whether an add was applied or needs a decision.
type AddStatus int

const (
	AddAdded    AddStatus = iota // line inserted or quantity incremented
	AddConflict                  // line belongs to another restaurant, nothing changed
)

func (s AddStatus) String() string {
	switch s {
	case AddAdded:
		return "added"
	case AddConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// PendingAdd carries everything needed to complete a replace-cart decision.
// The cart manager keeps no copy of it.
type PendingAdd struct {
	Line     CartLine `json:"line"`
	Quantity int      `json:"quantity"`
}

// AddResult is returned by the two-phase add. Pending and CartRestaurantID are
// only set when Status is AddConflict.
type AddResult struct {
	Status           AddStatus
	Pending          PendingAdd
	CartRestaurantID int
}
