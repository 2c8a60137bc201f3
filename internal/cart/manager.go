// Package cart holds the single active cart and enforces that every line in it
// comes from the same restaurant.
//
// Mutations apply to memory synchronously and hand the encoded cart to a
// Persister; the caller never waits on storage. Adding a line from another
// restaurant is a two-phase operation: AddToCart reports the conflict together
// with a PendingAdd, and only ConfirmReplace swaps the cart.
package cart

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/watch"
)

// Persister accepts the latest encoded value of a key without blocking.
type Persister interface {
	Put(key, value string)
}

// Manager owns the cart lines. Callers wait for Restore before mutating; a
// mutation made earlier is replaced by the restored cart.
type Manager struct {
	store  domain.KeyValueStore
	writer Persister
	hub    *watch.Hub[domain.CartSnapshot]

	mu      sync.RWMutex
	items   []domain.CartLine
	loading bool
}

// NewManager returns a manager in the loading state. Restore reads the cart from
// store; every later change is handed to writer.
func NewManager(store domain.KeyValueStore, writer Persister) *Manager {
	m := &Manager{
		store:   store,
		writer:  writer,
		hub:     watch.NewHub[domain.CartSnapshot](),
		loading: true,
	}
	m.hub.Publish(m.snapshotLocked())
	return m
}

// Restore loads the persisted cart. A missing, unreadable or invalid cart
// becomes an empty one.
func (m *Manager) Restore(ctx context.Context) {
	items := m.load(ctx)

	m.mu.Lock()
	m.items = items
	m.loading = false
	snap := m.snapshotLocked()
	m.hub.Publish(snap)
	m.mu.Unlock()

	slog.Info("Cart restored", "lines", len(items), "item_count", snap.ItemCount)
}

func (m *Manager) load(ctx context.Context) []domain.CartLine {
	data, ok, err := m.store.Get(ctx, domain.CartKey)
	if err != nil {
		slog.Error("Failed to read stored cart", "key", domain.CartKey, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	items, err := Decode(data)
	if err != nil {
		slog.Warn("Discarding unreadable stored cart", "error", err)
		return nil
	}
	if err := validate(items); err != nil {
		slog.Warn("Discarding invalid stored cart", "error", err)
		return nil
	}
	return items
}

// CanAddToCart reports whether a line from restaurantID fits the current cart.
func (m *Manager) CanAddToCart(restaurantID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.canAddLocked(restaurantID)
}

func (m *Manager) canAddLocked(restaurantID int) bool {
	return len(m.items) == 0 || m.items[0].RestaurantID == restaurantID
}

// AddToCart increments the line with the same product id or appends line. If
// line belongs to another restaurant nothing changes and the result carries
// the pending add for ConfirmReplace. An add that would push the item count past
// math.MaxInt fails with ErrInvalidQuantity.
func (m *Manager) AddToCart(line domain.CartLine, quantity int) (domain.AddResult, error) {
	if err := checkAdd(line, quantity); err != nil {
		return domain.AddResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canAddLocked(line.RestaurantID) {
		return domain.AddResult{
			Status:           domain.AddConflict,
			Pending:          domain.PendingAdd{Line: line, Quantity: quantity},
			CartRestaurantID: m.items[0].RestaurantID,
		}, nil
	}
	if quantity > math.MaxInt-itemCount(m.items) {
		return domain.AddResult{}, domain.ErrInvalidQuantity
	}

	if i := m.indexLocked(line.ProductID); i >= 0 {
		m.items[i].Quantity += quantity
	} else {
		line.Quantity = quantity
		m.items = append(m.items, line)
	}
	m.commitLocked()

	return domain.AddResult{Status: domain.AddAdded}, nil
}

// ConfirmReplace discards the cart and keeps only the pending line.
func (m *Manager) ConfirmReplace(pending domain.PendingAdd) error {
	if err := checkAdd(pending.Line, pending.Quantity); err != nil {
		return err
	}

	line := pending.Line
	line.Quantity = pending.Quantity

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = []domain.CartLine{line}
	m.commitLocked()
	return nil
}

// RemoveFromCart drops the line for productID if there is one.
func (m *Manager) RemoveFromCart(productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(productID)
	if i < 0 {
		return
	}
	m.items = slices.Delete(m.items, i, i+1)
	m.commitLocked()
}

// UpdateQuantity sets the quantity of productID. Zero or less removes the line.
// Unknown ids are ignored.
func (m *Manager) UpdateQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		m.RemoveFromCart(productID)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(productID)
	if i < 0 || m.items[i].Quantity == quantity {
		return nil
	}
	if quantity > math.MaxInt-(itemCount(m.items)-m.items[i].Quantity) {
		return domain.ErrInvalidQuantity
	}
	m.items[i].Quantity = quantity
	m.commitLocked()
	return nil
}

// ClearCart empties the cart and persists the empty cart.
func (m *Manager) ClearCart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	m.commitLocked()
}

// RestaurantID returns the restaurant shared by all lines, or false when empty.
func (m *Manager) RestaurantID() (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.items) == 0 {
		return 0, false
	}
	return m.items[0].RestaurantID, true
}

// ItemCount is the sum of line quantities.
func (m *Manager) ItemCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return itemCount(m.items)
}

// TotalPrice is the sum of unit price times quantity over all lines.
func (m *Manager) TotalPrice() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return totalPrice(m.items)
}

// Items returns a copy of the lines in insertion order.
func (m *Manager) Items() []domain.CartLine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

// Snapshot returns the cart as subscribers see it.
func (m *Manager) Snapshot() domain.CartSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Subscribe returns a subscription primed with the current snapshot.
func (m *Manager) Subscribe() *watch.Subscription[domain.CartSnapshot] {
	return m.hub.Subscribe()
}

// Loaded reports whether Restore has completed.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.loading
}

func (m *Manager) indexLocked(productID string) int {
	return slices.IndexFunc(m.items, func(l domain.CartLine) bool {
		return l.ProductID == productID
	})
}

func (m *Manager) snapshotLocked() domain.CartSnapshot {
	snap := domain.CartSnapshot{
		Items:      slices.Clone(m.items),
		ItemCount:  itemCount(m.items),
		TotalPrice: totalPrice(m.items),
		IsLoading:  m.loading,
	}
	if snap.Items == nil {
		snap.Items = []domain.CartLine{}
	}
	if len(m.items) > 0 {
		snap.RestaurantID = m.items[0].RestaurantID
		snap.HasRestaurant = true
	}
	return snap
}

// commitLocked queues the encoded cart and publishes the new snapshot. It runs
// under mu so queued values and published snapshots follow mutation order.
func (m *Manager) commitLocked() {
	data, err := Encode(m.items)
	if err != nil {
		slog.Error("Failed to encode cart for persistence", "error", err)
	} else {
		m.writer.Put(domain.CartKey, data)
	}
	m.hub.Publish(m.snapshotLocked())
}

func checkAdd(line domain.CartLine, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	return validateLine(line)
}

func itemCount(items []domain.CartLine) int {
	n := 0
	for _, l := range items {
		n += l.Quantity
	}
	return n
}

func totalPrice(items []domain.CartLine) float64 {
	var total float64
	for _, l := range items {
		total += l.Subtotal()
	}
	return total
}
