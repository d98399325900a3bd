package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/store"
	"civicsync/uploads"
)

// DefaultAuthority is used when an issue is not tagged to a department.
const DefaultAuthority = "General"

// IssueController handles citizen issue reports.
type IssueController struct {
	issues   IssueRepository
	uploader uploads.Uploader
	now      func() time.Time
}

// NewIssueController wires the handlers. uploader may be nil, in which case
// media endpoints answer 503.
func NewIssueController(issues IssueRepository, uploader uploads.Uploader) *IssueController {
	return &IssueController{issues: issues, uploader: uploader, now: time.Now}
}

type issueInput struct {
	Title           string           `json:"title" binding:"required,max=200"`
	Description     string           `json:"description" binding:"required,max=1000"`
	Category        string           `json:"category" binding:"required"`
	Location        string           `json:"location" binding:"required,max=200"`
	TaggedAuthority string           `json:"taggedAuthority" binding:"max=100"`
	GeoLocation     *models.GeoPoint `json:"geoLocation"`
	MediaURLs       []string         `json:"mediaURLs" binding:"max=5"`
}

// CreateIssue handles the creation of a new issue
func (ic *IssueController) CreateIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input issueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := models.IssueCategory(input.Category)
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	authority := input.TaggedAuthority
	if authority == "" {
		authority = DefaultAuthority
	}
	media := input.MediaURLs
	if media == nil {
		media = []string{}
	}

	now := models.NewTimestamp(ic.now())
	issue := models.Issue{
		Title:           input.Title,
		Description:     input.Description,
		Category:        &category,
		Location:        models.StringPtr(input.Location),
		TaggedAuthority: authority,
		GeoLocation:     input.GeoLocation,
		MediaURLs:       media,
		UserID:          userID,
		UserEmail:       c.GetString(middlewares.EmailKey),
		Upvotes:         0,
		UpvotedBy:       []string{},
		Status:          models.StatusPtr(models.Open),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := ic.issues.Create(c.Request.Context(), &issue); err != nil {
		log.WithError(err).Error("failed to create issue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create issue"})
		return
	}

	log.WithFields(log.Fields{"issue": issue.ID.Hex(), "user": userID}).Info("issue created")
	c.JSON(http.StatusCreated, issue)
}

// GetAllIssues lists issues with filtering, sorting and pagination.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultPageSize)))

	filter := store.IssueFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Location: c.Query("location"),
		Sort:     c.DefaultQuery("sort", store.SortNewest),
		Page:     page,
		Limit:    limit,
	}.Normalized()

	switch filter.Sort {
	case store.SortNewest, store.SortOldest, store.SortTrending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort"})
		return
	}

	ic.respondWithPage(c, filter)
}

// GetIssuesByUser lists the caller's own issues.
func (ic *IssueController) GetIssuesByUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultPageSize)))

	ic.respondWithPage(c, store.IssueFilter{UserID: userID, Page: page, Limit: limit}.Normalized())
}

func (ic *IssueController) respondWithPage(c *gin.Context, filter store.IssueFilter) {
	issues, total, err := ic.issues.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("failed to retrieve issues")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	c.JSON(http.StatusOK, gin.H{
		"issues":      issues,
		"totalIssues": total,
		"totalPages":  totalPages,
		"currentPage": filter.Page,
	})
}

// GetIssue retrieves an issue by its ID.
func (ic *IssueController) GetIssue(c *gin.Context) {
	issue, err := ic.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "issue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issue":        issue,
		"userHasVoted": issue.HasUpvoted(c.GetString(middlewares.UserIDKey)),
	})
}

// UpdateIssue allows the creator of an issue to update its details
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	if _, ok := ic.ownedIssue(c, "update"); !ok {
		return
	}

	var input struct {
		Title           *string          `json:"title" binding:"omitempty,max=200"`
		Description     *string          `json:"description" binding:"omitempty,max=1000"`
		Category        *string          `json:"category"`
		Location        *string          `json:"location" binding:"omitempty,max=200"`
		TaggedAuthority *string          `json:"taggedAuthority" binding:"omitempty,max=100"`
		GeoLocation     *models.GeoPoint `json:"geoLocation"`
		MediaURLs       []string         `json:"mediaURLs" binding:"omitempty,max=5"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := store.IssueUpdate{
		Title:           input.Title,
		Description:     input.Description,
		Location:        input.Location,
		TaggedAuthority: input.TaggedAuthority,
		GeoLocation:     input.GeoLocation,
		MediaURLs:       input.MediaURLs,
	}
	if input.Category != nil {
		category := models.IssueCategory(*input.Category)
		if !category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return
		}
		update.Category = &category
	}

	issue, err := ic.issues.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		storeError(c, err, "issue")
		return
	}

	c.JSON(http.StatusOK, issue)
}

// DeleteIssue allows the creator of an issue to delete it
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	if _, ok := ic.ownedIssue(c, "delete"); !ok {
		return
	}

	if err := ic.issues.Delete(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "issue")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// ownedIssue loads the issue in the path and checks the caller created it.
func (ic *IssueController) ownedIssue(c *gin.Context, action string) (*models.Issue, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}

	issue, err := ic.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "issue")
		return nil, false
	}

	if issue.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to " + action + " this issue"})
		return nil, false
	}
	return issue, true
}

// ToggleUpvote upvotes the issue, or withdraws the caller's upvote.
func (ic *IssueController) ToggleUpvote(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	issue, upvoted, err := ic.issues.ToggleUpvote(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		storeError(c, err, "issue")
		return
	}

	message := "Upvote removed"
	if upvoted {
		message = "Upvoted"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      message,
		"upvotes":      issue.Upvotes,
		"userHasVoted": upvoted,
	})
}

// UploadIssueMedia stores up to five photos for a report that is about to be
// filed and returns their URLs.
func (ic *IssueController) UploadIssueMedia(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	urls, ok := ic.saveImages(c, "issues", userID, "images", uploads.MaxIssueImages)
	if !ok {
		return
	}
	if len(urls) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No images provided"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"urls": urls})
}

// saveImages uploads the multipart files under field. On failure it writes
// the error response and returns false.
func (ic *IssueController) saveImages(c *gin.Context, prefix, owner, field string, limit int) ([]string, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return nil, false
	}
	files := form.File[field]
	if len(files) == 0 {
		return []string{}, true
	}

	if ic.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File uploads are not configured"})
		return nil, false
	}

	urls, err := uploads.SaveImages(c.Request.Context(), ic.uploader, prefix, owner, files, limit)
	switch {
	case err == nil:
		return urls, true
	case errors.Is(err, uploads.ErrTooManyFiles),
		errors.Is(err, uploads.ErrNotAnImage),
		errors.Is(err, uploads.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store files"})
	}
	return nil, false
}
