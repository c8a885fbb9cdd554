package auth

import (
	"context"
	"fmt"
	"time"

	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload: {id, role}.
type Claims struct {
	UserID string      `json:"id"`
	Role   config.Role `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// Issue signs an HS256 token. Token issuance belongs to the accounts service; this is
// used by tooling and tests.
func (a *Authenticator) Issue(userID string, role config.Role) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("Invalid token claims")
	}

	claims.Role = config.NormalizeRole(string(claims.Role))
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, apperrors.Unauthorized("Invalid token claims")
	}
	return claims, nil
}

type contextKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok && c != nil
}

// Actor is the caller identity services act on behalf of.
type Actor struct {
	UserID string
	Role   config.Role
}

func (a Actor) Is(roles ...config.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func ActorFrom(ctx context.Context) (Actor, error) {
	c, ok := FromContext(ctx)
	if !ok {
		return Actor{}, apperrors.Unauthorized("Authentication required")
	}
	return Actor{UserID: c.UserID, Role: c.Role}, nil
}
