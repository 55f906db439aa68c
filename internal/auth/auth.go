// Package auth verifies bearer credentials and carries the caller identity
// through request contexts.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oggyb/destined/internal/config"
)

const (
	RoleUser       = "USER"
	RoleSuperAdmin = "SUPERADMIN"
)

var (
	ErrMissingToken = errors.New("Unauthorized Access, Token is missing")
	ErrInvalidToken = errors.New("Invalid or Expired Token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uint64
	Role   string
}

// CanActAs reports whether the caller may act on behalf of userID.
func (i Identity) CanActAs(userID uint64) bool {
	return i.UserID == userID || i.Role == RoleSuperAdmin
}

// Verifier turns a credential into an Identity.
type Verifier interface {
	Authenticate(token string) (Identity, error)
}

// Claims mirrors the token payload issued by the account service:
// {"user": {"id": "42"}, "role": "USER"}.
type Claims struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewJWTService(cfg config.AuthConfig) *JWTService {
	return &JWTService{
		signingKey: []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		ttl:        cfg.JWTTTL,
	}
}

// Issue creates a token for id. Used by the seeder and tests.
func (s *JWTService) Issue(id Identity) (string, error) {
	claims := Claims{Role: id.Role}
	claims.User.ID = strconv.FormatUint(id.UserID, 10)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *JWTService) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.User.ID == "" || claims.Role == "" {
		return Identity{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.User.ID, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Role: claims.Role}, nil
}

// TokenFromRequest reads the credential from "Authorization: Bearer" or,
// for browser WebSocket clients that cannot set headers, the token query param.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
