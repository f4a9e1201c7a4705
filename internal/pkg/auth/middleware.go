package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/repository/port"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// contextKey is where the resolved Context lives inside gin's request scope.
const contextKey = "shopchat.auth"

const lookupTimeout = 3 * time.Second

// Middleware resolves the bearer token against the user store and aborts with
// 401 when no caller can be established. Websocket clients may pass the token
// as a query parameter since browsers cannot set headers on upgrade requests.
func Middleware(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
		defer cancel()

		user, err := users.FindByToken(ctx, token)
		if err != nil {
			log.Error().Err(err).Msg("auth: token lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to authenticate"})
			return
		}
		if user == nil || !user.Role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(contextKey, Context{
			UserID:   user.ID,
			Role:     user.Role,
			TenantID: user.TenantID,
		})
		c.Next()
	}
}

// RequireRoles aborts with 403 unless the caller holds one of the given roles.
func RequireRoles(roles ...chat.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := FromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, r := range roles {
			if actx.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// FromGin extracts the caller placed by Middleware.
func FromGin(c *gin.Context) (Context, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Context{}, false
	}
	actx, ok := v.(Context)
	return actx, ok
}

// SetForTest injects a caller directly, for handler tests that bypass the
// token lookup.
func SetForTest(c *gin.Context, actx Context) {
	c.Set(contextKey, actx)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
