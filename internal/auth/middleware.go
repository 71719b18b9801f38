package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mhalushka/rolodex/internal/models"
)

const userContextKey = "currentUser"

const (
	msgMissingToken = "Authorization token wasn't sent"
	msgInvalidToken = "Invalid user authorization credentials or token is expired"
)

// RequireAuth rejects requests without a valid bearer access token and
// stashes the resolved user in the gin context for handlers downstream.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgMissingToken})
			return
		}
		raw, ok := bearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgInvalidToken})
			return
		}

		user, err := svc.RequireAccess(c.Request.Context(), raw)
		if errors.Is(err, ErrUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgInvalidToken})
			return
		}
		if err != nil {
			slog.Error("Failed to resolve access token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// SetCurrentUser records user as the request's authenticated principal.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}

// CurrentUser returns the user stored by RequireAuth, or nil when the
// request did not pass through it.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
