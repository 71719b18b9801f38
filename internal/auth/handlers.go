package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

// ConfirmationEnqueuer queues the confirmation email that follows signup.
type ConfirmationEnqueuer interface {
	EnqueueConfirmationEmail(ctx context.Context, email string) error
}

// AvatarSource provides the initial avatar URL for a new account.
type AvatarSource interface {
	DefaultURL(ctx context.Context, email string) (string, error)
}

// AvatarStorage persists uploaded avatar images and returns their public URL.
type AvatarStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email,max=250"`
	Password string `json:"password" binding:"required,min=6,max=10"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Avatar    *string   `json:"avatar"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		Avatar:    user.Avatar,
	}
}

// SignupHandler registers a new account and queues its confirmation email.
// Failures past the point of row creation (default avatar probe, enqueue)
// are logged and swallowed so the signup itself still succeeds.
func SignupHandler(store UserStore, avatars AvatarSource, enqueuer ConfirmationEnqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		existing, err := store.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			slog.Error("Failed to check for existing user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"detail": fmt.Sprintf("User with the email %s already exists", req.Email)})
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			slog.Error("Failed to hash password", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		user := &models.User{Email: req.Email, Password: hash}
		if url, err := avatars.DefaultURL(c.Request.Context(), req.Email); err != nil {
			slog.Warn("No default avatar for new user", "email", req.Email, "error", err)
		} else {
			user.Avatar = &url
		}

		if err := store.Create(c.Request.Context(), user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"detail": fmt.Sprintf("User with the email %s already exists", req.Email)})
				return
			}
			slog.Error("Failed to create user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		if err := enqueuer.EnqueueConfirmationEmail(c.Request.Context(), user.Email); err != nil {
			slog.Error("Failed to enqueue confirmation email", "email", user.Email, "error", err)
		}

		c.JSON(http.StatusCreated, gin.H{
			"user":   newUserResponse(user),
			"detail": "User successfully created. Check your email for confirmation.",
		})
	}
}

// LoginHandler exchanges credentials for a bearer token pair.
func LoginHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		pair, err := svc.Authenticate(c.Request.Context(), req.Email, req.Password)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email"})
		case errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid password"})
		case errors.Is(err, ErrEmailNotConfirmed):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Email not confirmed"})
		case err != nil:
			slog.Error("Failed to authenticate user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		default:
			c.JSON(http.StatusOK, pair)
		}
	}
}

// RefreshHandler rotates the token pair for a refresh token presented as a
// bearer credential.
func RefreshHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": msgMissingToken})
			return
		}
		raw, ok := bearerToken(header)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidToken})
			return
		}

		pair, err := svc.Refresh(c.Request.Context(), raw)
		if errors.Is(err, ErrInvalidRefreshToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired refresh token"})
			return
		}
		if err != nil {
			slog.Error("Failed to refresh session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

// ConfirmEmailHandler marks the account in a confirmation link as verified.
// Confirming twice is harmless and reported as such.
func ConfirmEmailHandler(tokens *EmailTokens, store UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, err := tokens.Resolve(c.Param("token"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid token for email verification"})
			return
		}

		user, err := store.GetByEmail(c.Request.Context(), email)
		if err != nil {
			slog.Error("Failed to load user for confirmation", "email", email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if user == nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Verification error"})
			return
		}
		if user.Confirmed {
			c.JSON(http.StatusOK, gin.H{"message": "Your email is already confirmed"})
			return
		}

		if err := store.ConfirmEmail(c.Request.Context(), email); err != nil {
			slog.Error("Failed to confirm email", "email", email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email confirmed"})
	}
}

// AvatarHandler replaces the calling user's avatar with an uploaded image.
func AvatarHandler(store UserStore, storage AvatarStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": msgMissingToken})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "A file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			slog.Error("Failed to open uploaded avatar", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		defer file.Close()

		key := fmt.Sprintf("avatars/%s/%s", user.Email, uuid.NewString())
		url, err := storage.Upload(c.Request.Context(), key, fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
		if err != nil {
			slog.Error("Failed to upload avatar", "email", user.Email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		updated, err := store.UpdateAvatar(c.Request.Context(), user.Email, url)
		if err != nil {
			slog.Error("Failed to save avatar", "email", user.Email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if updated == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		c.JSON(http.StatusOK, newUserResponse(updated))
	}
}

// DeleteUserHandler removes an account and its cache entry. Deleting an
// email that no longer exists still returns 204.
func DeleteUserHandler(store UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Param("email")
		if err := store.Delete(c.Request.Context(), email); err != nil {
			slog.Error("Failed to delete user", "email", email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
