// Package claims reads authorization hints out of a bearer credential.
//
// Signatures and expiry are not checked: the decoded claims only drive
// UI-level decisions, real authorization is enforced by the remote API. The
// header only has to be valid JSON; an unknown or missing alg is accepted.
package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/pscheid92/foodcart/internal/domain"
)

var (
	errInvalidRole    = errors.New("role claim must be a string or a list of strings")
	errInvalidSubject = errors.New("sub claim must be a string or an integer")
)

var parser = jwt.NewParser()

// tokenClaims is the strict claims shape; every field is optional.
type tokenClaims struct {
	Role    *roleSet `json:"role,omitempty"`
	Subject *subject `json:"sub,omitempty"`
	Expires *float64 `json:"exp,omitempty"`
}

// Valid satisfies jwt.Claims. Validation is never run on the unverified path.
func (tokenClaims) Valid() error { return nil }

// roleSet accepts either a single role or a list of roles.
type roleSet []string

func (r *roleSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = normalize([]string{single})
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errInvalidRole
	}
	*r = normalize(many)
	return nil
}

// subject accepts a string or an integer. Numeric ids keep their decimal form.
type subject string

func (s *subject) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = subject(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errInvalidSubject
	}
	if _, err := n.Int64(); err != nil {
		return errInvalidSubject
	}
	*s = subject(n.String())
	return nil
}

// normalize drops empty entries and duplicates, keeping first-seen order.
func normalize(roles []string) roleSet {
	seen := make(map[string]struct{}, len(roles))
	out := make(roleSet, 0, len(roles))
	for _, role := range roles {
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// Decode parses token and returns its claims. It is total: any malformed input
// yields a ClaimsFailed result instead of an error or panic.
func Decode(token string) (result domain.ClaimsResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.ClaimsResult{Status: domain.ClaimsFailed}
		}
	}()

	c, err := parse(token)
	if err != nil {
		return domain.ClaimsResult{Status: domain.ClaimsFailed}
	}

	out := domain.Claims{}
	if c.Role != nil {
		out.Roles = []string(*c.Role)
	}
	if c.Subject != nil {
		out.Subject = string(*c.Subject)
	}
	if c.Expires != nil {
		sec, frac := math.Modf(*c.Expires)
		out.ExpiresAt = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}

	return domain.ClaimsResult{Status: domain.ClaimsDecoded, Claims: out}
}

func parse(token string) (*tokenClaims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	c := &tokenClaims{}
	_, _, err := parser.ParseUnverified(token, c)
	if err == nil {
		return c, nil
	}

	// The claims are fully decoded before the alg lookup fails.
	var ve *jwt.ValidationError
	if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorUnverifiable {
		return c, nil
	}
	return nil, fmt.Errorf("failed to parse token: %w", err)
}

// IsAdmin reports whether a decoded result carries the admin role.
func IsAdmin(result domain.ClaimsResult) bool {
	return result.Status == domain.ClaimsDecoded && result.Claims.HasRole(domain.AdminRole)
}

// UserID returns the subject of a decoded result, or "" when absent or failed.
func UserID(result domain.ClaimsResult) string {
	if result.Status != domain.ClaimsDecoded {
		return ""
	}
	return result.Claims.Subject
}
