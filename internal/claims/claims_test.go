package claims

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/foodcart/internal/domain"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}

func TestDecode_AdminWithSubject(t *testing.T) {
	result := Decode(signToken(t, jwt.MapClaims{"role": "Admin", "sub": "42"}))

	require.Equal(t, domain.ClaimsDecoded, result.Status)
	assert.Equal(t, []string{"Admin"}, result.Claims.Roles)
	assert.Equal(t, "42", result.Claims.Subject)
	assert.True(t, IsAdmin(result))
	assert.Equal(t, "42", UserID(result))
}

func TestDecode_RoleShapes(t *testing.T) {
	tests := []struct {
		name      string
		role      any
		wantRoles []string
		wantAdmin bool
	}{
		{"single user role", "User", []string{"User"}, false},
		{"list containing admin", []string{"User", "Admin"}, []string{"User", "Admin"}, true},
		{"duplicates and empties collapse", []string{"User", "", "User"}, []string{"User"}, false},
		{"admin is case sensitive", "admin", []string{"admin"}, false},
		{"empty list", []string{}, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(signToken(t, jwt.MapClaims{"role": tt.role}))

			require.Equal(t, domain.ClaimsDecoded, result.Status)
			assert.Equal(t, tt.wantRoles, result.Claims.Roles)
			assert.Equal(t, tt.wantAdmin, IsAdmin(result))
		})
	}
}

func TestDecode_NoOptionalClaims(t *testing.T) {
	result := Decode(signToken(t, jwt.MapClaims{"name": "someone"}))

	require.Equal(t, domain.ClaimsDecoded, result.Status)
	assert.Empty(t, result.Claims.Roles)
	assert.Empty(t, result.Claims.Subject)
	assert.True(t, result.Claims.ExpiresAt.IsZero())
	assert.False(t, IsAdmin(result))
	assert.Empty(t, UserID(result))
}

func TestDecode_Expiry(t *testing.T) {
	result := Decode(signToken(t, jwt.MapClaims{"exp": 1700000000}))

	require.Equal(t, domain.ClaimsDecoded, result.Status)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), result.Claims.ExpiresAt)
}

func TestDecode_ExpiredTokenStillDecodes(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	result := Decode(signToken(t, jwt.MapClaims{"exp": past, "role": "Admin"}))

	require.Equal(t, domain.ClaimsDecoded, result.Status)
	assert.True(t, IsAdmin(result))
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a token", "validtoken"},
		{"garbage segments", "a.b.c"},
		{"two segments", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiI0MiJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.token)

			assert.Equal(t, domain.ClaimsFailed, result.Status)
			assert.False(t, IsAdmin(result))
			assert.Empty(t, UserID(result))
		})
	}
}

func TestDecode_WrongClaimTypesFail(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"numeric role", jwt.MapClaims{"role": 5}},
		{"mixed role list", jwt.MapClaims{"role": []any{"Admin", 1}}},
		{"fractional subject", jwt.MapClaims{"sub": 4.2}},
		{"object subject", jwt.MapClaims{"sub": map[string]any{"id": 1}}},
		{"string expiry", jwt.MapClaims{"exp": "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(signToken(t, tt.claims))
			assert.Equal(t, domain.ClaimsFailed, result.Status)
			assert.False(t, IsAdmin(result))
		})
	}
}

func TestDecode_SubjectShapes(t *testing.T) {
	tests := []struct {
		name string
		sub  any
		want string
	}{
		{"string", "42", "42"},
		{"integer", 42, "42"},
		{"large integer", int64(9007199254740993), "9007199254740993"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(signToken(t, jwt.MapClaims{"role": "Admin", "sub": tt.sub}))

			require.Equal(t, domain.ClaimsDecoded, result.Status)
			assert.Equal(t, tt.want, UserID(result))
			assert.True(t, IsAdmin(result))
		})
	}
}

func TestDecode_HeaderAlgIgnored(t *testing.T) {
	payload := jwt.EncodeSegment([]byte(`{"role":"Admin","sub":"7"}`))
	tests := []struct {
		name   string
		header string
	}{
		{"unknown alg", `{"alg":"XS999","typ":"JWT"}`},
		{"missing alg", `{"typ":"JWT"}`},
		{"none", `{"alg":"none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := jwt.EncodeSegment([]byte(tt.header)) + "." + payload + ".sig"

			result := Decode(token)

			require.Equal(t, domain.ClaimsDecoded, result.Status)
			assert.True(t, IsAdmin(result))
			assert.Equal(t, "7", UserID(result))
		})
	}
}

func TestDecode_SignatureIgnored(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"role": "Admin", "sub": "7"})
	tampered := token[:len(token)-4] + "AAAA"

	result := Decode(tampered)
	require.Equal(t, domain.ClaimsDecoded, result.Status)
	assert.True(t, IsAdmin(result))
	assert.Equal(t, "7", UserID(result))
}
