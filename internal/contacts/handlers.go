package contacts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhalushka/rolodex/internal/auth"
	"github.com/mhalushka/rolodex/internal/models"
)

type contactRequest struct {
	FirstName  string `json:"first_name" binding:"required,max=50"`
	LastName   string `json:"last_name" binding:"required,max=50"`
	Birthdate  string `json:"birthdate" binding:"required"`
	Gender     string `json:"gender" binding:"required,max=1"`
	Persuasion string `json:"persuasion" binding:"max=50"`
}

// toContact validates the birthdate, which must parse as YYYY-MM-DD and lie
// strictly in the past, and builds the row to persist.
func (req *contactRequest) toContact(userID uint) (*models.Contact, error) {
	birthdate, err := models.ParseDate(req.Birthdate)
	if err != nil {
		return nil, errors.New("birthdate must be formatted as YYYY-MM-DD")
	}
	if !birthdate.Time().Before(startOfToday()) {
		return nil, errors.New("birthdate must be in the past")
	}
	return &models.Contact{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Birthdate:  &birthdate,
		Gender:     req.Gender,
		Persuasion: req.Persuasion,
		CreatedBy:  userID,
	}, nil
}

func startOfToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func contactIDParam(c *gin.Context) (uint, bool) {
	value, err := strconv.ParseUint(c.Param("contactId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "contactId must be a positive integer"})
		return 0, false
	}
	return uint(value), true
}

// ListHandler returns the caller's contacts with optional exact-match
// filters: firstName, lastName, and email (matched against channel values).
func ListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)

		contacts, err := store.List(c.Request.Context(), user.ID, c.Query("firstName"), c.Query("lastName"), c.Query("email"))
		if err != nil {
			slog.Error("Failed to list contacts", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, contacts)
	}
}

// BirthdaysHandler returns the caller's contacts with a birthday in the
// next daysForward days, today inclusive.
func BirthdaysHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)

		daysForward, err := strconv.Atoi(c.Query("daysForward"))
		if err != nil || daysForward < 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "daysForward must be a non-negative integer"})
			return
		}

		contacts, err := store.Birthdays(c.Request.Context(), user.ID, daysForward)
		if err != nil {
			slog.Error("Failed to list birthdays", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, contacts)
	}
}

func GetHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		contactID, ok := contactIDParam(c)
		if !ok {
			return
		}

		contact, err := store.Get(c.Request.Context(), user.ID, contactID)
		if err != nil {
			slog.Error("Failed to load contact", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if contact == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Contact not found"})
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}

func CreateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)

		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		contact, err := req.toContact(user.ID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		if err := store.Create(c.Request.Context(), contact); err != nil {
			slog.Error("Failed to create contact", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}

func UpdateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		contactID, ok := contactIDParam(c)
		if !ok {
			return
		}

		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		changes, err := req.toContact(user.ID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		contact, err := store.Update(c.Request.Context(), user.ID, contactID, changes)
		if err != nil {
			slog.Error("Failed to update contact", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if contact == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Contact not found"})
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}

// DeleteHandler removes a contact and returns the deleted row.
func DeleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		contactID, ok := contactIDParam(c)
		if !ok {
			return
		}

		contact, err := store.Delete(c.Request.Context(), user.ID, contactID)
		if err != nil {
			slog.Error("Failed to delete contact", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if contact == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Contact not found"})
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}
