package controllers

import (
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/uploads"
)

// MaxProofFiles bounds the proof photos attached to one response.
const MaxProofFiles = uploads.MaxIssueImages

// RespondToIssue records a municipality response. A "resolved" response
// resolves the issue; any other type moves it to in_progress.
// Accepts JSON or a multipart form with optional "proof" files.
func (ic *IssueController) RespondToIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Type string `json:"type" form:"type" binding:"required"`
		Text string `json:"text" form:"text" binding:"required,max=2000"`
	}
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	responseType := models.IssueStatus(input.Type)
	switch responseType {
	case models.Resolved, models.InProgress, models.Unresolved:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid response type"})
		return
	}

	issueID := c.Param("id")
	if _, err := ic.issues.Get(c.Request.Context(), issueID); err != nil {
		storeError(c, err, "issue")
		return
	}

	proof, ok := ic.saveImages(c, "responses", issueID, "proof", MaxProofFiles)
	if !ok {
		return
	}
	if proof == nil {
		proof = []string{}
	}

	response := models.Response{
		Type:             responseType,
		Text:             input.Text,
		ProofURLs:        proof,
		RespondedBy:      userID,
		RespondedByEmail: c.GetString(middlewares.EmailKey),
		RespondedAt:      ic.now().UTC().Format(models.ISOLayout),
	}

	issue, err := ic.issues.Respond(c.Request.Context(), issueID, response, StatusForResponse(responseType))
	if err != nil {
		storeError(c, err, "issue")
		return
	}

	log.WithFields(log.Fields{"issue": issueID, "type": responseType, "by": userID}).Info("issue response recorded")
	c.JSON(http.StatusOK, issue)
}

// StatusForResponse maps a response type to the issue's new status.
func StatusForResponse(t models.IssueStatus) models.IssueStatus {
	if t == models.Resolved {
		return models.Resolved
	}
	return models.InProgress
}
