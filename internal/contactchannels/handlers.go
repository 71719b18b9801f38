package contactchannels

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mhalushka/rolodex/internal/auth"
	"github.com/mhalushka/rolodex/internal/models"
)

const (
	defaultSkip  = 0
	defaultLimit = 100
)

type contactChannelRequest struct {
	ContactID    uint   `json:"contact_id" binding:"required"`
	ChannelID    uint   `json:"channel_id" binding:"required"`
	ChannelValue string `json:"channel_value" binding:"required,max=250"`
}

func idParam(c *gin.Context) (uint, bool) {
	value, err := strconv.ParseUint(c.Param("contactChannelId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "contactChannelId must be a positive integer"})
		return 0, false
	}
	return uint(value), true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("%s must be a non-negative integer", name)})
		return 0, false
	}
	return value, true
}

// ListHandler returns the caller's contact channels, paginated with skip
// and limit query parameters.
func ListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)

		skip, ok := queryInt(c, "skip", defaultSkip)
		if !ok {
			return
		}
		limit, ok := queryInt(c, "limit", defaultLimit)
		if !ok {
			return
		}

		rows, err := store.List(c.Request.Context(), user.ID, skip, limit)
		if err != nil {
			slog.Error("Failed to list contact channels", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func GetHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := idParam(c)
		if !ok {
			return
		}

		row, err := store.Get(c.Request.Context(), user.ID, id)
		if err != nil {
			slog.Error("Failed to load contact channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if row == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Contact channel %d is not found", id)})
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func CreateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)

		var req contactChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		row := &models.ContactChannel{
			ContactID:    req.ContactID,
			ChannelID:    req.ChannelID,
			ChannelValue: req.ChannelValue,
			CreatedBy:    user.ID,
		}
		err := store.Create(c.Request.Context(), row)
		switch {
		case errors.Is(err, ErrDuplicateValue):
			c.JSON(http.StatusConflict, gin.H{"detail": "Such channel value already exists in the DB"})
		case errors.Is(err, ErrMissingReference):
			c.JSON(http.StatusNotFound, gin.H{"detail": "Contact or channel name is not found"})
		case err != nil:
			slog.Error("Failed to create contact channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		default:
			c.JSON(http.StatusOK, row)
		}
	}
}

func UpdateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := idParam(c)
		if !ok {
			return
		}

		var req contactChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		changes := &models.ContactChannel{
			ContactID:    req.ContactID,
			ChannelID:    req.ChannelID,
			ChannelValue: req.ChannelValue,
		}
		row, err := store.Update(c.Request.Context(), user.ID, id, changes)
		switch {
		case errors.Is(err, ErrDuplicateValue):
			c.JSON(http.StatusConflict, gin.H{"detail": "Such channel value already exists in the DB"})
		case errors.Is(err, ErrMissingReference):
			c.JSON(http.StatusNotFound, gin.H{"detail": "Contact or channel name is not found"})
		case err != nil:
			slog.Error("Failed to update contact channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		case row == nil:
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Contact channel %d is not found", id)})
		default:
			c.JSON(http.StatusOK, row)
		}
	}
}

// DeleteHandler removes a contact channel and returns the deleted row.
func DeleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := idParam(c)
		if !ok {
			return
		}

		row, err := store.Delete(c.Request.Context(), user.ID, id)
		if err != nil {
			slog.Error("Failed to delete contact channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if row == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Contact channel %d is not found", id)})
			return
		}
		c.JSON(http.StatusOK, row)
	}
}
