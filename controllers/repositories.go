package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/store"
)

// UserRepository is implemented by store.UserStore.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
}

// IssueRepository is implemented by store.IssueStore.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	List(ctx context.Context, f store.IssueFilter) ([]models.Issue, int64, error)
	Get(ctx context.Context, id string) (*models.Issue, error)
	Update(ctx context.Context, id string, u store.IssueUpdate) (*models.Issue, error)
	Delete(ctx context.Context, id string) error
	ToggleUpvote(ctx context.Context, id, userID string) (*models.Issue, bool, error)
	Respond(ctx context.Context, id string, resp models.Response, status models.IssueStatus) (*models.Issue, error)
}

func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middlewares.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	return userID, true
}

// storeError writes the response for a failed repository call.
func storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(what) + " not found"})
	default:
		log.WithError(err).WithField("entity", what).Error("store failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
