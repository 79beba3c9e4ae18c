package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// TokenCookie is the cookie the identity middleware falls back to when no
// Authorization header is present
const TokenCookie = "auth_token"

var ErrInvalidToken = errors.New("invalid token")

type contextKey string

const actorKey contextKey = "actor"

// Claims are the JWT claims asserted by the identity provider. The subject is the user id.
type Claims struct {
	Role   model.UserRole `json:"role"`
	Events []string       `json:"events,omitempty"`
	jwt.RegisteredClaims
}

// Identity issues and verifies HMAC-signed identity tokens
type Identity struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewIdentity(secret string, ttl time.Duration, logger *zap.Logger) *Identity {
	return &Identity{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// IssueToken signs a token for the actor
func (i *Identity) IssueToken(actor model.Actor) (string, error) {
	now := i.now()
	claims := Claims{
		Role:   actor.Role,
		Events: actor.ManagedEventIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the actor it asserts
func (i *Identity) Parse(tokenString string) (model.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || !claims.Role.IsValid() {
		return model.Actor{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}

	return model.Actor{
		UserID:          claims.Subject,
		Role:            claims.Role,
		ManagedEventIDs: claims.Events,
	}, nil
}

// Middleware resolves the caller from a bearer token or the auth cookie.
// Requests without a token pass through anonymously; invalid tokens are rejected.
func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			if cookie, err := r.Cookie(TokenCookie); err == nil {
				tokenString = cookie.Value
			}
		}

		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := i.Parse(tokenString)
		if err != nil {
			i.logger.Debug("Rejected identity token", zap.Error(err))
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithActor returns a context carrying the actor
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor resolved by the middleware, if any
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}
