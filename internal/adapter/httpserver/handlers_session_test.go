package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSession_HidesToken(t *testing.T) {
	session := &mockSessionService{snapshotFn: func() domain.Session {
		return domain.Session{Token: "secret.jwt.value", UserID: "42", IsAdmin: true}
	}}
	srv := newTestServer(t, nil, session)

	rec := do(srv, http.MethodGet, "/api/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":true,"userId":"42","isAdmin":true,"isLoading":false}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret.jwt.value")
}

func TestGetSession_Anonymous(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodGet, "/api/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false,"isAdmin":false,"isLoading":false}`, rec.Body.String())
}

func TestSignIn(t *testing.T) {
	var got string
	var current domain.Session
	session := &mockSessionService{
		signInFn: func(_ context.Context, token string) error {
			got = token
			current = domain.Session{Token: token, UserID: "7"}
			return nil
		},
		snapshotFn: func() domain.Session { return current },
	}
	srv := newTestServer(t, nil, session)

	rec := do(srv, http.MethodPost, "/api/session/sign-in", `{"token":"abc.def.ghi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def.ghi", got)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
	assert.Contains(t, rec.Body.String(), `"userId":"7"`)
}

func TestSignIn_EmptyToken(t *testing.T) {
	session := &mockSessionService{signInFn: func(_ context.Context, token string) error {
		return domain.ErrEmptyToken
	}}
	srv := newTestServer(t, nil, session)

	rec := do(srv, http.MethodPost, "/api/session/sign-in", `{"token":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrEmptyToken.Error())
}

func TestSignIn_UnexpectedErrorIsInternal(t *testing.T) {
	session := &mockSessionService{signInFn: func(context.Context, string) error {
		return errors.New("boom")
	}}
	srv := newTestServer(t, nil, session)

	rec := do(srv, http.MethodPost, "/api/session/sign-in", `{"token":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestSignOut(t *testing.T) {
	signedOut := false
	session := &mockSessionService{signOutFn: func(context.Context) { signedOut = true }}
	srv := newTestServer(t, nil, session)

	rec := do(srv, http.MethodPost, "/api/session/sign-out", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, signedOut)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
}
