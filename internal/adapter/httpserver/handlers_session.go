package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/foodcart/internal/domain"
	apperrors "github.com/pscheid92/foodcart/internal/platform/errors"
)

// sessionResponse never carries the credential itself.
type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	IsAdmin       bool   `json:"isAdmin"`
	IsLoading     bool   `json:"isLoading"`
}

func newSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		Authenticated: s.IsAuthenticated(),
		UserID:        s.UserID,
		IsAdmin:       s.IsAdmin,
		IsLoading:     s.IsLoading,
	}
}

type signInRequest struct {
	Token string `json:"token"`
}

func (s *Server) registerSessionRoutes(api *echo.Group) {
	api.GET("/session", s.handleGetSession)
	api.POST("/session/sign-in", s.handleSignIn)
	api.POST("/session/sign-out", s.handleSignOut)
}

func (s *Server) handleGetSession(c echo.Context) error {
	if err := c.JSON(http.StatusOK, newSessionResponse(s.session.Snapshot())); err != nil {
		return fmt.Errorf("failed to write session response: %w", err)
	}
	return nil
}

func (s *Server) handleSignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.session.SignIn(c.Request().Context(), req.Token); err != nil {
		if errors.Is(err, domain.ErrEmptyToken) {
			return apperrors.InvalidInput(err)
		}
		return apperrors.InternalError("failed to sign in", err)
	}

	return s.handleGetSession(c)
}

func (s *Server) handleSignOut(c echo.Context) error {
	s.session.SignOut(c.Request().Context())
	return s.handleGetSession(c)
}
