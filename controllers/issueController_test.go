package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicsync/models"
	"civicsync/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type recordingUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *recordingUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, name)
	return "https://cdn.example.com/" + name, nil
}

func issueRouter(issues *fakeIssues, uploader *recordingUploader, userID, role string) *gin.Engine {
	var ic *IssueController
	if uploader == nil {
		ic = NewIssueController(issues, nil)
	} else {
		ic = NewIssueController(issues, uploader)
	}
	ic.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(asUser(userID, role))
	r.POST("/issues", ic.CreateIssue)
	r.GET("/issues", ic.GetAllIssues)
	r.GET("/issues/mine", ic.GetIssuesByUser)
	r.POST("/issues/media", ic.UploadIssueMedia)
	r.GET("/issues/:id", ic.GetIssue)
	r.PUT("/issues/:id", ic.UpdateIssue)
	r.DELETE("/issues/:id", ic.DeleteIssue)
	r.POST("/issues/:id/upvote", ic.ToggleUpvote)
	r.POST("/issues/:id/response", ic.RespondToIssue)
	return r
}

func multipartBody(t *testing.T, field string, n int, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := 0; i < n; i++ {
		fw, err := mw.CreateFormFile(field, "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postMultipart(r http.Handler, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateIssue(t *testing.T) {
	issues := newFakeIssues()
	r := issueRouter(issues, nil, "citizen-1", "citizen")

	w := doJSON(t, r, http.MethodPost, "/issues", gin.H{
		"title":       "Pothole",
		"description": "Deep hole near the school",
		"category":    "roads",
		"location":    "Elm St",
		"geoLocation": gin.H{"lat": 12.9, "lng": 77.6},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got models.Issue
	decode(t, w, &got)
	assert.Equal(t, models.Open, got.StatusOrDefault())
	assert.Equal(t, DefaultAuthority, got.TaggedAuthority)
	assert.Equal(t, "citizen-1", got.UserID)
	assert.Equal(t, "citizen-1@example.com", got.UserEmail)
	assert.Equal(t, 0, got.Upvotes)
	assert.Empty(t, got.UpvotedBy)
	require.NotNil(t, got.GeoLocation)
	assert.Equal(t, 77.6, got.GeoLocation.Lng)
	assert.Equal(t, "2026-03-02T10:00:00.000Z", got.CreatedAt.ISOString())
	assert.Len(t, issues.byID, 1)
}

func TestCreateIssueValidation(t *testing.T) {
	base := func() gin.H {
		return gin.H{"title": "t", "description": "d", "category": "water", "location": "Pier"}
	}
	tests := []struct {
		name   string
		mutate func(gin.H)
	}{
		{"unknown category", func(b gin.H) { b["category"] = "parks" }},
		{"missing title", func(b gin.H) { delete(b, "title") }},
		{"too many media", func(b gin.H) { b["mediaURLs"] = []string{"a", "b", "c", "d", "e", "f"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			w := doJSON(t, issueRouter(newFakeIssues(), nil, "u", "citizen"), http.MethodPost, "/issues", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetAllIssuesPassesFilters(t *testing.T) {
	issues := newFakeIssues(models.Issue{Title: "a"}, models.Issue{Title: "b"})
	r := issueRouter(issues, nil, "u", "citizen")

	w := doJSON(t, r, http.MethodGet, "/issues?category=roads&status=open&location=elm&sort=trending&page=2&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, store.IssueFilter{
		Category: "roads", Status: "open", Location: "elm", Sort: store.SortTrending, Page: 2, Limit: 1,
	}, issues.lastFilter)

	var page struct {
		TotalIssues int64 `json:"totalIssues"`
		TotalPages  int   `json:"totalPages"`
		CurrentPage int   `json:"currentPage"`
	}
	decode(t, w, &page)
	assert.EqualValues(t, 2, page.TotalIssues)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/issues?sort=random", nil).Code)
}

func TestGetIssuesByUser(t *testing.T) {
	issues := newFakeIssues(models.Issue{Title: "mine", UserID: "u"}, models.Issue{Title: "theirs", UserID: "v"})
	w := doJSON(t, issueRouter(issues, nil, "u", "citizen"), http.MethodGet, "/issues/mine", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mine"`)
	assert.NotContains(t, w.Body.String(), `"theirs"`)
}

func TestGetIssue(t *testing.T) {
	existing := models.Issue{Title: "Pothole", UpvotedBy: []string{"u"}, Upvotes: 1}
	issues := newFakeIssues(existing)
	var id string
	for k := range issues.byID {
		id = k
	}
	r := issueRouter(issues, nil, "u", "citizen")

	w := doJSON(t, r, http.MethodGet, "/issues/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userHasVoted":true`)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/issues/zzz", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/issues/64f0c0ffee64f0c0ffee64f0", nil).Code)
}

func TestUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	issues := newFakeIssues(models.Issue{Title: "Pothole", UserID: "owner"})
	var id string
	for k := range issues.byID {
		id = k
	}

	stranger := issueRouter(issues, nil, "stranger", "citizen")
	assert.Equal(t, http.StatusForbidden, doJSON(t, stranger, http.MethodPut, "/issues/"+id, gin.H{"title": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, stranger, http.MethodDelete, "/issues/"+id, nil).Code)

	owner := issueRouter(issues, nil, "owner", "citizen")
	assert.Equal(t, http.StatusBadRequest, doJSON(t, owner, http.MethodPut, "/issues/"+id, gin.H{"category": "parks"}).Code)

	w := doJSON(t, owner, http.MethodPut, "/issues/"+id, gin.H{"title": "Deep pothole", "category": "roads"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Deep pothole"`)

	assert.Equal(t, http.StatusOK, doJSON(t, owner, http.MethodDelete, "/issues/"+id, nil).Code)
	assert.Empty(t, issues.byID)
}

func TestToggleUpvote(t *testing.T) {
	issues := newFakeIssues(models.Issue{Title: "Pothole"})
	var id string
	for k := range issues.byID {
		id = k
	}
	r := issueRouter(issues, nil, "voter", "citizen")

	var first, second struct {
		Upvotes      int  `json:"upvotes"`
		UserHasVoted bool `json:"userHasVoted"`
	}
	decode(t, doJSON(t, r, http.MethodPost, "/issues/"+id+"/upvote", nil), &first)
	decode(t, doJSON(t, r, http.MethodPost, "/issues/"+id+"/upvote", nil), &second)

	assert.Equal(t, 1, first.Upvotes)
	assert.True(t, first.UserHasVoted)
	assert.Equal(t, 0, second.Upvotes)
	assert.False(t, second.UserHasVoted)
}

func TestUploadIssueMedia(t *testing.T) {
	up := &recordingUploader{}
	r := issueRouter(newFakeIssues(), up, "citizen-1", "citizen")

	body, ct := multipartBody(t, "images", 2, nil)
	w := postMultipart(r, "/issues/media", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, up.names, 2)
	for _, name := range up.names {
		assert.True(t, strings.HasPrefix(name, "issues/citizen-1/"), name)
	}

	body, ct = multipartBody(t, "images", 6, nil)
	assert.Equal(t, http.StatusBadRequest, postMultipart(r, "/issues/media", body, ct).Code)

	body, ct = multipartBody(t, "images", 0, nil)
	assert.Equal(t, http.StatusBadRequest, postMultipart(r, "/issues/media", body, ct).Code)
}

func TestUploadIssueMediaWithoutStorage(t *testing.T) {
	r := issueRouter(newFakeIssues(), nil, "citizen-1", "citizen")
	body, ct := multipartBody(t, "images", 1, nil)
	assert.Equal(t, http.StatusServiceUnavailable, postMultipart(r, "/issues/media", body, ct).Code)
}

func TestRespondToIssue(t *testing.T) {
	tests := []struct {
		responseType string
		wantStatus   models.IssueStatus
	}{
		{"resolved", models.Resolved},
		{"in_progress", models.InProgress},
		{"unresolved", models.InProgress},
	}
	for _, tt := range tests {
		t.Run(tt.responseType, func(t *testing.T) {
			issues := newFakeIssues(models.Issue{Title: "Pothole"})
			var id string
			for k := range issues.byID {
				id = k
			}
			r := issueRouter(issues, nil, "officer", "municipality")

			w := doJSON(t, r, http.MethodPost, "/issues/"+id+"/response", gin.H{"type": tt.responseType, "text": "Crew dispatched"})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			stored := issues.byID[id]
			assert.Equal(t, tt.wantStatus, stored.StatusOrDefault())
			require.NotNil(t, stored.Response)
			assert.Equal(t, models.IssueStatus(tt.responseType), stored.Response.Type)
			assert.Equal(t, "officer", stored.Response.RespondedBy)
			assert.Equal(t, "officer@example.com", stored.Response.RespondedByEmail)
			assert.Equal(t, "2026-03-02T10:00:00.000Z", stored.Response.RespondedAt)
			assert.Empty(t, stored.Response.ProofURLs)
		})
	}
}

func TestRespondToIssueWithProof(t *testing.T) {
	issues := newFakeIssues(models.Issue{Title: "Pothole"})
	var id string
	for k := range issues.byID {
		id = k
	}
	up := &recordingUploader{}
	r := issueRouter(issues, up, "officer", "municipality")

	body, ct := multipartBody(t, "proof", 1, map[string]string{"type": "resolved", "text": "Patched"})
	w := postMultipart(r, "/issues/"+id+"/response", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, up.names, 1)
	assert.True(t, strings.HasPrefix(up.names[0], "responses/"+id+"/"), up.names[0])
	assert.Len(t, issues.byID[id].Response.ProofURLs, 1)
}

func TestRespondToIssueRejectsUnknownType(t *testing.T) {
	issues := newFakeIssues(models.Issue{Title: "Pothole"})
	var id string
	for k := range issues.byID {
		id = k
	}
	r := issueRouter(issues, nil, "officer", "municipality")

	w := doJSON(t, r, http.MethodPost, "/issues/"+id+"/response", gin.H{"type": "open", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, issues.byID[id].Response)
}
