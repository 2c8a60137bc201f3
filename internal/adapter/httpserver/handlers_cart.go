package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/foodcart/internal/domain"
	apperrors "github.com/pscheid92/foodcart/internal/platform/errors"
)

const defaultAddQuantity = 1

// addRequest is shared by add and replace. A missing quantity means one.
type addRequest struct {
	Line     domain.CartLine `json:"line"`
	Quantity *int            `json:"quantity"`
}

func (r addRequest) pending() domain.PendingAdd {
	qty := defaultAddQuantity
	if r.Quantity != nil {
		qty = *r.Quantity
	}
	return domain.PendingAdd{Line: r.Line, Quantity: qty}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type addedResponse struct {
	Status string              `json:"status"`
	Cart   domain.CartSnapshot `json:"cart"`
}

type conflictResponse struct {
	Status           string            `json:"status"`
	Pending          domain.PendingAdd `json:"pending"`
	CartRestaurantID int               `json:"cartRestaurantId"`
}

func (s *Server) registerCartRoutes(api *echo.Group) {
	api.GET("/cart", s.handleGetCart)
	api.DELETE("/cart", s.handleClearCart)
	api.GET("/cart/can-add/:restaurantId", s.handleCanAdd)
	api.POST("/cart/items", s.handleAddItem)
	api.POST("/cart/replace", s.handleReplaceCart)
	api.PUT("/cart/items/:productId", s.handleUpdateQuantity)
	api.DELETE("/cart/items/:productId", s.handleRemoveItem)
}

func (s *Server) handleGetCart(c echo.Context) error {
	return s.writeCart(c)
}

func (s *Server) handleCanAdd(c echo.Context) error {
	restaurantID, err := strconv.Atoi(c.Param("restaurantId"))
	if err != nil {
		return apperrors.ValidationError("restaurant id must be an integer").
			WithContext("restaurant_id", c.Param("restaurantId"))
	}

	response := map[string]bool{"canAdd": s.cart.CanAddToCart(restaurantID)}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write can-add response: %w", err)
	}
	return nil
}

func (s *Server) handleAddItem(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	pending := req.pending()

	result, err := s.cart.AddToCart(pending.Line, pending.Quantity)
	if err != nil {
		return cartInputError(err)
	}

	if result.Status == domain.AddConflict {
		response := conflictResponse{
			Status:           result.Status.String(),
			Pending:          result.Pending,
			CartRestaurantID: result.CartRestaurantID,
		}
		if err := c.JSON(http.StatusConflict, response); err != nil {
			return fmt.Errorf("failed to write conflict response: %w", err)
		}
		return nil
	}

	response := addedResponse{Status: result.Status.String(), Cart: s.cart.Snapshot()}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write add response: %w", err)
	}
	return nil
}

func (s *Server) handleReplaceCart(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.cart.ConfirmReplace(req.pending()); err != nil {
		return cartInputError(err)
	}
	return s.writeCart(c)
}

func (s *Server) handleUpdateQuantity(c echo.Context) error {
	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Quantity == nil {
		return apperrors.ValidationError("quantity is required")
	}

	if err := s.cart.UpdateQuantity(c.Param("productId"), *req.Quantity); err != nil {
		return cartInputError(err)
	}
	return s.writeCart(c)
}

func (s *Server) handleRemoveItem(c echo.Context) error {
	s.cart.RemoveFromCart(c.Param("productId"))
	return s.writeCart(c)
}

func (s *Server) handleClearCart(c echo.Context) error {
	s.cart.ClearCart()
	return s.writeCart(c)
}

func (s *Server) writeCart(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.cart.Snapshot()); err != nil {
		return fmt.Errorf("failed to write cart response: %w", err)
	}
	return nil
}

func cartInputError(err error) error {
	if errors.Is(err, domain.ErrInvalidQuantity) || errors.Is(err, domain.ErrInvalidLine) {
		return apperrors.InvalidInput(err)
	}
	return apperrors.InternalError("failed to update cart", err)
}
