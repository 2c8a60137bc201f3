package domain

import (
	"slices"
	"time"
)

// AdminRole is the role claim value that grants admin UI access.
const AdminRole = "Admin"

// Session is a point-in-time copy of the authentication state.
// UserID and IsAdmin are always derived from Token.
type Session struct {
	Token     string `json:"token,omitempty"`
	UserID    string `json:"userId,omitempty"`
	IsAdmin   bool   `json:"isAdmin"`
	IsLoading bool   `json:"isLoading"`
}

func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// Claims are the authorization hints carried by a credential.
// A zero ExpiresAt means the claim was absent.
type Claims struct {
	Roles     []string
	Subject   string
	ExpiresAt time.Time
}

func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

type ClaimsStatus int

const (
	ClaimsFailed  ClaimsStatus = iota // token could not be parsed
	ClaimsDecoded                     // token parsed, Claims populated
)

func (s ClaimsStatus) String() string {
	switch s {
	case ClaimsDecoded:
		return "decoded"
	case ClaimsFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ClaimsResult is the outcome of decoding a credential.
type ClaimsResult struct {
	Status ClaimsStatus
	Claims Claims
}

// ClaimsDecoder must be pure and total: it never panics and never performs I/O.
type ClaimsDecoder func(token string) ClaimsResult
