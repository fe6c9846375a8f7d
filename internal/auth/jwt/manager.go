package jwt

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/httputil"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// Claims represents the JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"groups"`
}

// Actor returns the actor the token speaks for.
func (c *Claims) Actor() *actor.Actor {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return &actor.Actor{
		ID:       id,
		Username: c.Username,
		Email:    c.Email,
		Groups:   c.Groups,
	}
}

// Manager handles JWT operations
type Manager struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg, now: time.Now}
}

// Issue signs an access token for a. The identity service normally issues
// tokens; this is used by stockctl and tests.
func (m *Manager) Issue(a *actor.Actor) (string, time.Time, error) {
	now := m.now()
	expiry := now.Add(m.config.AccessExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   a.ID,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:   a.ID,
		Username: a.Username,
		Email:    a.Email,
		Groups:   a.Groups,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}

// Middleware authenticates Bearer tokens and places the actor in the
// request context.
func (m *Manager) Middleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.Error(w, errors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := m.ValidateAccessToken(parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("token validation failed")
				httputil.Error(w, err)
				return
			}

			a := claims.Actor()
			httputil.RecordActor(r.Context(), a)
			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}
