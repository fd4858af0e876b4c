package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

const (
	// ActorLocalsKey holds the authenticated models.Actor in fiber locals.
	ActorLocalsKey = "actor"

	// TokenIssuer and TokenAudience are required on every accepted token.
	TokenIssuer   = "rental-lifecycle-api"
	TokenAudience = "rental-lifecycle-client"
)

// ActorClaims are the JWT claims the API understands.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseActor validates tokenString and returns the actor it identifies.
// SYSTEM is never accepted from a token; it is reserved for webhooks and jobs.
func ParseActor(secret, tokenString string) (models.Actor, error) {
	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return models.Actor{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return models.Actor{}, models.NewUnauthorizedError("Invalid user ID in token")
	}

	role := models.Role(strings.ToUpper(claims.Role))
	if !role.Valid() || role == models.RoleSystem {
		return models.Actor{}, models.NewUnauthorizedError("Invalid role in token")
	}

	return models.Actor{ID: uint(userID), Role: role}, nil
}

// IssueToken signs a token for actor. It backs the CLI token command and tests;
// login flows live outside this service.
func IssueToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(actor.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ActorRequired enforces a Bearer token on protected routes and stores the actor in locals.
func ActorRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		return authenticate(c, secret, parts[1])
	}
}

// WebSocketActorRequired validates the token query parameter used by browser WebSocket clients,
// falling back to the Authorization header.
func WebSocketActorRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			parts := strings.Split(c.Get("Authorization"), " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token required"))
		}
		return authenticate(c, secret, token)
	}
}

func authenticate(c *fiber.Ctx, secret, token string) error {
	actor, err := ParseActor(secret, token)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	c.Locals(ActorLocalsKey, actor)
	c.Locals("userID", actor.ID)

	ctx := context.WithValue(c.UserContext(), UserIDKey, actor.ID)
	ctx = context.WithValue(ctx, RoleKey, string(actor.Role))
	c.SetUserContext(ctx)

	return c.Next()
}

// ActorFromCtx returns the authenticated actor stored by ActorRequired.
func ActorFromCtx(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(ActorLocalsKey).(models.Actor)
	return actor, ok
}

// RequireRole rejects actors whose role is not listed with 403.
// Must be placed after ActorRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("role "+string(actor.Role)+" may not perform this operation"))
	}
}
