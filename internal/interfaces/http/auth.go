package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

const actorContextKey = "actor"

// Claims carries the actor identity inside a bearer token
type Claims struct {
	Name     string  `json:"name,omitempty"`
	GroupIDs []int64 `json:"group_ids,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken signs a token for the actor
func (a *Authenticator) GenerateToken(actor entity.Actor) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := &Claims{
		Name:     actor.Name,
		GroupIDs: actor.GroupIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken verifies a token and returns its claims
func (a *Authenticator) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Middleware resolves the actor from the Authorization header
func (a *Authenticator) Middleware(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenStr == "" {
			h.respondError(c, "Authenticate", fmt.Errorf("%w: missing bearer token", entity.ErrUnauthenticated))
			return
		}

		claims, err := a.ParseToken(tokenStr)
		if err != nil {
			h.respondError(c, "Authenticate", fmt.Errorf("%w: %v", entity.ErrUnauthenticated, err))
			return
		}

		c.Set(actorContextKey, entity.Actor{
			ID:       claims.Subject,
			Name:     claims.Name,
			GroupIDs: claims.GroupIDs,
			IP:       c.ClientIP(),
		})
		c.Next()
	}
}

// headerActor trusts X-Actor-ID and X-Actor-Groups; used when token auth is disabled
func headerActor(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := entity.Actor{
			ID:   c.GetHeader("X-Actor-ID"),
			Name: c.GetHeader("X-Actor-Name"),
			IP:   c.ClientIP(),
		}
		if groups := c.GetHeader("X-Actor-Groups"); groups != "" {
			for _, part := range strings.Split(groups, ",") {
				id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
				if err != nil {
					h.badRequest(c, "invalid X-Actor-Groups header", err)
					return
				}
				actor.GroupIDs = append(actor.GroupIDs, id)
			}
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{IP: c.ClientIP()}
}
