package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civicsync/models"
)

// Sort orders accepted by IssueFilter.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortTrending = "trending"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// IssueFilter selects a page of issues. Empty fields do not filter.
type IssueFilter struct {
	Category string
	Status   string
	Location string
	UserID   string
	Sort     string
	Page     int
	Limit    int
}

func (f IssueFilter) query() bson.M {
	q := bson.M{}
	if f.Category != "" && f.Category != "all" {
		q["category"] = f.Category
	}
	if f.Status != "" && f.Status != "all" {
		q["status"] = f.Status
	}
	if f.Location != "" {
		q["location"] = bson.M{"$regex": regexp.QuoteMeta(f.Location), "$options": "i"}
	}
	if f.UserID != "" {
		q["userId"] = f.UserID
	}
	return q
}

func (f IssueFilter) sort() bson.D {
	switch f.Sort {
	case SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}}
	case SortTrending:
		return bson.D{{Key: "upvotes", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

// Normalized clamps paging to sane values.
func (f IssueFilter) Normalized() IssueFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > MaxPageSize {
		f.Limit = DefaultPageSize
	}
	return f
}

// IssueUpdate holds the owner-editable fields; nil means unchanged.
type IssueUpdate struct {
	Title           *string
	Description     *string
	Category        *models.IssueCategory
	Location        *string
	TaggedAuthority *string
	GeoLocation     *models.GeoPoint
	MediaURLs       []string
}

func (u IssueUpdate) set(now time.Time) bson.M {
	set := bson.M{"updatedAt": models.NewTimestamp(now)}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.TaggedAuthority != nil {
		set["taggedAuthority"] = *u.TaggedAuthority
	}
	if u.GeoLocation != nil {
		set["geoLocation"] = *u.GeoLocation
	}
	if u.MediaURLs != nil {
		set["mediaURLs"] = u.MediaURLs
	}
	return set
}

// IssueStore is the issues collection.
type IssueStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewIssueStore wraps coll.
func NewIssueStore(coll *mongo.Collection) *IssueStore {
	return &IssueStore{coll: coll, now: time.Now}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// Create inserts issue and fills in its id.
func (s *IssueStore) Create(ctx context.Context, issue *models.Issue) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

// List returns one page of issues and the total number matching f.
func (s *IssueStore) List(ctx context.Context, f IssueFilter) ([]models.Issue, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	f = f.Normalized()
	q := f.query()

	total, err := s.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	opts := options.Find().
		SetSort(f.sort()).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cursor, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find issues: %w", err)
	}
	defer cursor.Close(ctx)

	issues, _, err := models.DecodeIssues(ctx, cursor)
	if err != nil {
		return nil, 0, fmt.Errorf("read issues: %w", err)
	}
	return issues, total, nil
}

// Get loads one issue.
func (s *IssueStore) Get(ctx context.Context, id string) (*models.Issue, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var issue models.Issue
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&issue); err != nil {
		return nil, notFound(err)
	}
	return &issue, nil
}

// Update applies u and returns the updated issue.
func (s *IssueStore) Update(ctx context.Context, id string, u IssueUpdate) (*models.Issue, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": u.set(s.now())})
}

// Delete removes one issue.
func (s *IssueStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleUpvote adds userID to the upvoters if absent, otherwise removes it.
// It reports whether the user now upvotes the issue. The counter never drops
// below zero.
func (s *IssueStore) ToggleUpvote(ctx context.Context, id, userID string) (*models.Issue, bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, false, err
	}

	added, err := s.findOneAndUpdate(ctx,
		bson.M{"_id": oid, "upvotedBy": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"upvotedBy": userID}, "$inc": bson.M{"upvotes": 1}},
	)
	if err == nil {
		return added, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	removed, err := s.findOneAndUpdate(ctx,
		bson.M{"_id": oid, "upvotedBy": userID},
		mongo.Pipeline{{{Key: "$set", Value: bson.M{
			"upvotedBy": bson.M{"$filter": bson.M{
				"input": "$upvotedBy",
				"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
			}},
			"upvotes": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$upvotes", 1}}}},
		}}}},
	)
	if err != nil {
		return nil, false, err
	}
	return removed, false, nil
}

// Respond records a municipality response and the resulting status.
func (s *IssueStore) Respond(ctx context.Context, id string, resp models.Response, status models.IssueStatus) (*models.Issue, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"status":    status,
		"response":  resp,
		"updatedAt": models.NewTimestamp(s.now()),
	}})
}

func (s *IssueStore) findOneAndUpdate(ctx context.Context, filter, update interface{}) (*models.Issue, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var issue models.Issue
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue); err != nil {
		return nil, notFound(err)
	}
	return &issue, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
