package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Principal struct {
	UserID string
	Role   string
}

type principalKey struct{}

func principalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// Auth verifies HS256 bearer tokens.
type Auth struct {
	secret []byte
	log    *slog.Logger
}

func NewAuth(secret string, log *slog.Logger) *Auth {
	return &Auth{secret: []byte(secret), log: log}
}

// Issue signs a token for userID. Used by tooling and tests.
func (a *Auth) Issue(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

func (a *Auth) parse(header string) (Principal, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return Principal{}, errUnauthorized
	}
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	if c.UserID == "" {
		return Principal{}, fmt.Errorf("%w: user_id claim missing", errUnauthorized)
	}
	return Principal{UserID: c.UserID, Role: c.Role}, nil
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.parse(r.Header.Get("Authorization"))
		if err != nil {
			a.log.Debug("rejected token", "path", r.URL.Path, "err", err)
			writeError(w, a.log, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// RequireAdmin must run after Middleware.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principalFrom(r.Context()).Role != RoleAdmin {
			writeError(w, a.log, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
