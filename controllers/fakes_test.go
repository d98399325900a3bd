package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	fails error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return f.fails
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return store.ErrEmailTaken
		}
	}
	user.ID = primitive.NewObjectID()
	stored := *user
	f.byID[user.ID.Hex()] = &stored
	return nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, store.ErrInvalidID
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	f.mu.Lock()
	u, ok := f.byID[id]
	if ok {
		u.Name = name
	}
	f.mu.Unlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.FindByID(ctx, id)
}

type fakeIssues struct {
	mu         sync.Mutex
	byID       map[string]*models.Issue
	lastFilter store.IssueFilter
}

func newFakeIssues(issues ...models.Issue) *fakeIssues {
	f := &fakeIssues{byID: map[string]*models.Issue{}}
	for i := range issues {
		issue := issues[i]
		if issue.ID.IsZero() {
			issue.ID = primitive.NewObjectID()
		}
		f.byID[issue.ID.Hex()] = &issue
	}
	return f
}

func (f *fakeIssues) get(id string) (*models.Issue, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, store.ErrInvalidID
	}
	issue, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return issue, nil
}

func (f *fakeIssues) Create(ctx context.Context, issue *models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue.ID = primitive.NewObjectID()
	stored := *issue
	f.byID[issue.ID.Hex()] = &stored
	return nil
}

func (f *fakeIssues) List(ctx context.Context, filter store.IssueFilter) ([]models.Issue, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	out := []models.Issue{}
	for _, issue := range f.byID {
		if filter.UserID != "" && issue.UserID != filter.UserID {
			continue
		}
		out = append(out, *issue)
	}
	return out, int64(len(out)), nil
}

func (f *fakeIssues) Get(ctx context.Context, id string) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, err := f.get(id)
	if err != nil {
		return nil, err
	}
	cp := *issue
	return &cp, nil
}

func (f *fakeIssues) Update(ctx context.Context, id string, u store.IssueUpdate) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if u.Title != nil {
		issue.Title = *u.Title
	}
	if u.Category != nil {
		issue.Category = u.Category
	}
	cp := *issue
	return &cp, nil
}

func (f *fakeIssues) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(id); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeIssues) ToggleUpvote(ctx context.Context, id, userID string) (*models.Issue, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, err := f.get(id)
	if err != nil {
		return nil, false, err
	}
	if issue.HasUpvoted(userID) {
		kept := issue.UpvotedBy[:0]
		for _, v := range issue.UpvotedBy {
			if v != userID {
				kept = append(kept, v)
			}
		}
		issue.UpvotedBy = kept
		if issue.Upvotes > 0 {
			issue.Upvotes--
		}
		cp := *issue
		return &cp, false, nil
	}
	issue.UpvotedBy = append(issue.UpvotedBy, userID)
	issue.Upvotes++
	cp := *issue
	return &cp, true, nil
}

func (f *fakeIssues) Respond(ctx context.Context, id string, resp models.Response, status models.IssueStatus) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, err := f.get(id)
	if err != nil {
		return nil, err
	}
	issue.Response = &resp
	issue.Status = &status
	cp := *issue
	return &cp, nil
}

// asUser stands in for AuthMiddleware.
func asUser(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.UserIDKey, userID)
		c.Set(middlewares.EmailKey, userID+"@example.com")
		c.Set(middlewares.RoleKey, role)
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONWithToken(t, r, method, path, body, "")
}

func doJSONWithToken(t *testing.T, r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
