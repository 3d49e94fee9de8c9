package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/auth"
)

const (
	// HeaderActorID names the acting user when token auth is disabled.
	HeaderActorID = "X-Actor-ID"

	KeyActorID = "actor_id"
	KeyRoles   = "roles"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Verify(token string) (*auth.Principal, error)
}

// Auth requires a valid bearer token and records its subject as the actor.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		principal, err := validator.Verify(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token").WithCause(err))
			c.Abort()
			return
		}

		c.Set(KeyActorID, principal.UserID)
		c.Set(KeyRoles, principal.Roles)
		c.Next()
	}
}

// HeaderActor trusts the X-Actor-ID header. Only for development and tests.
func HeaderActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actor == "" {
			abortUnauthorized(c, "missing "+HeaderActorID+" header")
			return
		}
		c.Set(KeyActorID, actor)
		c.Next()
	}
}

// Actor returns the acting user set by Auth or HeaderActor.
func Actor(c *gin.Context) string {
	return c.GetString(KeyActorID)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
