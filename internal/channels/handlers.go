package channels

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

type channelRequest struct {
	Name string `json:"name" binding:"required,oneof=email phone post"`
}

func channelIDParam(c *gin.Context) (uint, bool) {
	value, err := strconv.ParseUint(c.Param("channelId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "channelId must be a positive integer"})
		return 0, false
	}
	return uint(value), true
}

func ListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		channels, err := store.List(c.Request.Context())
		if err != nil {
			slog.Error("Failed to list channels", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, channels)
	}
}

func GetHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelIDParam(c)
		if !ok {
			return
		}

		channel, err := store.Get(c.Request.Context(), channelID)
		if err != nil {
			slog.Error("Failed to load channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if channel == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Channel not found"})
			return
		}
		c.JSON(http.StatusOK, channel)
	}
}

func CreateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req channelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		existing, err := store.GetByName(c.Request.Context(), req.Name)
		if err != nil {
			slog.Error("Failed to check for existing channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"detail": fmt.Sprintf("Channel with the name '%s' already exists", req.Name)})
			return
		}

		channel := &models.Channel{Name: req.Name}
		if err := store.Create(c.Request.Context(), channel); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"detail": fmt.Sprintf("Channel with the name '%s' already exists", req.Name)})
				return
			}
			slog.Error("Failed to create channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, channel)
	}
}

func UpdateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelIDParam(c)
		if !ok {
			return
		}

		var req channelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		channel, err := store.Update(c.Request.Context(), channelID, req.Name)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"detail": fmt.Sprintf("Channel with the name '%s' already exists", req.Name)})
			return
		}
		if err != nil {
			slog.Error("Failed to update channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if channel == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Channel not found"})
			return
		}
		c.JSON(http.StatusOK, channel)
	}
}

// DeleteHandler removes a channel and returns the deleted row. A channel
// still referenced by contact channels is reported as a conflict.
func DeleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelIDParam(c)
		if !ok {
			return
		}

		channel, err := store.Delete(c.Request.Context(), channelID)
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			c.JSON(http.StatusConflict, gin.H{"detail": "Channel is referenced by existing contact channels"})
			return
		}
		if err != nil {
			slog.Error("Failed to delete channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if channel == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Channel not found"})
			return
		}
		c.JSON(http.StatusOK, channel)
	}
}
