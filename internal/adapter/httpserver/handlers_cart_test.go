package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pscheid92/foodcart/internal/domain"
	apperrors "github.com/pscheid92/foodcart/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pizza = domain.CartLine{ProductID: "p1", Name: "Pizza", UnitPrice: 10, RestaurantID: 5}

func TestGetCart(t *testing.T) {
	cart := &mockCartService{
		snapshotFn: func() domain.CartSnapshot {
			line := pizza
			line.Quantity = 2
			return domain.CartSnapshot{
				Items:         []domain.CartLine{line},
				ItemCount:     2,
				TotalPrice:    20,
				RestaurantID:  5,
				HasRestaurant: true,
			}
		},
	}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodGet, "/api/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.CartSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.ItemCount)
	assert.InDelta(t, 20.0, got.TotalPrice, 1e-9)
	assert.Equal(t, 5, got.RestaurantID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
}

func TestGetCart_EmptyItemsIsArray(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodGet, "/api/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestCanAdd(t *testing.T) {
	var asked int
	cart := &mockCartService{canAddFn: func(id int) bool {
		asked = id
		return id == 5
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodGet, "/api/cart/can-add/5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"canAdd":true}`, rec.Body.String())
	assert.Equal(t, 5, asked)

	rec = do(srv, http.MethodGet, "/api/cart/can-add/8", "")
	assert.JSONEq(t, `{"canAdd":false}`, rec.Body.String())
}

func TestCanAdd_InvalidRestaurantID(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodGet, "/api/cart/can-add/abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	var gotLine domain.CartLine
	var gotQty int
	cart := &mockCartService{addToCartFn: func(line domain.CartLine, qty int) (domain.AddResult, error) {
		gotLine, gotQty = line, qty
		return domain.AddResult{Status: domain.AddAdded}, nil
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPost, "/api/cart/items",
		`{"line":{"productId":"p1","name":"Pizza","unitPrice":10,"restaurantId":5}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gotQty)
	assert.Equal(t, "p1", gotLine.ProductID)
	assert.Equal(t, 5, gotLine.RestaurantID)
	assert.Contains(t, rec.Body.String(), `"status":"added"`)
	assert.Contains(t, rec.Body.String(), `"cart":`)
}

func TestAddItem_ExplicitQuantity(t *testing.T) {
	var gotQty int
	cart := &mockCartService{addToCartFn: func(_ domain.CartLine, qty int) (domain.AddResult, error) {
		gotQty = qty
		return domain.AddResult{Status: domain.AddAdded}, nil
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPost, "/api/cart/items", `{"line":{"productId":"p1","restaurantId":5},"quantity":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, gotQty)
}

func TestAddItem_Conflict(t *testing.T) {
	cart := &mockCartService{addToCartFn: func(line domain.CartLine, qty int) (domain.AddResult, error) {
		return domain.AddResult{
			Status:           domain.AddConflict,
			Pending:          domain.PendingAdd{Line: line, Quantity: qty},
			CartRestaurantID: 8,
		}, nil
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPost, "/api/cart/items", `{"line":{"productId":"p1","restaurantId":5},"quantity":2}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp conflictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp.Status)
	assert.Equal(t, 8, resp.CartRestaurantID)
	assert.Equal(t, "p1", resp.Pending.Line.ProductID)
	assert.Equal(t, 2, resp.Pending.Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	cart := &mockCartService{addToCartFn: func(domain.CartLine, int) (domain.AddResult, error) {
		return domain.AddResult{}, domain.ErrInvalidQuantity
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPost, "/api/cart/items", `{"line":{"productId":"p1","restaurantId":5},"quantity":0}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrInvalidQuantity.Error(), resp.Error)
}

func TestAddItem_MalformedBody(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodPost, "/api/cart/items", `{"line":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceCart(t *testing.T) {
	var got domain.PendingAdd
	cart := &mockCartService{confirmReplaceFn: func(p domain.PendingAdd) error {
		got = p
		return nil
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPost, "/api/cart/replace", `{"line":{"productId":"s1","unitPrice":12,"restaurantId":8}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", got.Line.ProductID)
	assert.Equal(t, 1, got.Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	var gotID string
	var gotQty int
	cart := &mockCartService{updateQuantityFn: func(id string, qty int) error {
		gotID, gotQty = id, qty
		return nil
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPut, "/api/cart/items/p1", `{"quantity":0}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", gotID)
	assert.Equal(t, 0, gotQty)
}

func TestUpdateQuantity_MissingQuantity(t *testing.T) {
	called := false
	cart := &mockCartService{updateQuantityFn: func(string, int) error {
		called = true
		return nil
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPut, "/api/cart/items/p1", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestUpdateQuantity_Overflow(t *testing.T) {
	cart := &mockCartService{updateQuantityFn: func(string, int) error {
		return domain.ErrInvalidQuantity
	}}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodPut, "/api/cart/items/p1", `{"quantity":9223372036854775807}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem(t *testing.T) {
	var gotID string
	cart := &mockCartService{removeFn: func(id string) { gotID = id }}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodDelete, "/api/cart/items/p2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p2", gotID)
}

func TestClearCart(t *testing.T) {
	cleared := false
	cart := &mockCartService{clearFn: func() { cleared = true }}
	srv := newTestServer(t, cart, nil)

	rec := do(srv, http.MethodDelete, "/api/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cleared)
}

func TestCorrelationIDEchoed(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodGet, "/api/cart", "")
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
