package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Roads       IssueCategory = "roads"
	Water       IssueCategory = "water"
	Waste       IssueCategory = "waste"
	Electricity IssueCategory = "electricity"
	Sanitation  IssueCategory = "sanitation"
	Other       IssueCategory = "other"
)

// Valid reports whether c is one of the known categories.
func (c IssueCategory) Valid() bool {
	switch c {
	case Roads, Water, Waste, Electricity, Sanitation, Other:
		return true
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Open       IssueStatus = "open"
	InProgress IssueStatus = "in_progress"
	Resolved   IssueStatus = "resolved"
	Unresolved IssueStatus = "unresolved"
)

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case Open, InProgress, Resolved, Unresolved:
		return true
	}
	return false
}

// UnknownLocation is substituted for a missing location.
const UnknownLocation = "Unknown"

// GeoPoint is the coordinate picked on the map.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Response is the municipality's answer to an issue.
type Response struct {
	Type             IssueStatus `bson:"type" json:"type"`
	Text             string      `bson:"text" json:"text"`
	ProofURLs        []string    `bson:"proofURLs" json:"proofURLs"`
	RespondedBy      string      `bson:"respondedBy" json:"respondedBy"`
	RespondedByEmail string      `bson:"respondedByEmail,omitempty" json:"respondedByEmail,omitempty"`
	// RespondedAt is an ISO-8601 string, empty when unknown.
	RespondedAt string `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// Issue represents a civic issue reported by a user.
//
// Category, Location, Status and CreatedAt are pointers because documents
// written by older clients may omit them; use the *OrDefault accessors to
// read them with the documented substitutions applied.
type Issue struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Category        *IssueCategory     `bson:"category,omitempty" json:"category,omitempty"`
	Location        *string            `bson:"location,omitempty" json:"location,omitempty"`
	TaggedAuthority string             `bson:"taggedAuthority,omitempty" json:"taggedAuthority,omitempty"`
	GeoLocation     *GeoPoint          `bson:"geoLocation,omitempty" json:"geoLocation,omitempty"`
	MediaURLs       []string           `bson:"mediaURLs" json:"mediaURLs"`
	UserID          string             `bson:"userId" json:"userId"`
	UserEmail       string             `bson:"userEmail,omitempty" json:"userEmail,omitempty"`
	Upvotes         int                `bson:"upvotes" json:"upvotes"`
	UpvotedBy       []string           `bson:"upvotedBy" json:"upvotedBy"`
	Status          *IssueStatus       `bson:"status,omitempty" json:"status,omitempty"`
	Response        *Response          `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt       *Timestamp         `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt       *Timestamp         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// CategoryOrDefault returns the category, or "other" when it is missing or empty.
func (i *Issue) CategoryOrDefault() IssueCategory {
	if i.Category == nil || *i.Category == "" {
		return Other
	}
	return *i.Category
}

// StatusOrDefault returns the status, or "open" when it is missing or empty.
func (i *Issue) StatusOrDefault() IssueStatus {
	if i.Status == nil || *i.Status == "" {
		return Open
	}
	return *i.Status
}

// LocationOrDefault returns the location, or "Unknown" when it is missing or empty.
func (i *Issue) LocationOrDefault() string {
	if i.Location == nil || *i.Location == "" {
		return UnknownLocation
	}
	return *i.Location
}

// HasUpvoted reports whether userID is in the upvoter set.
func (i *Issue) HasUpvoted(userID string) bool {
	for _, id := range i.UpvotedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// CategoryPtr returns a pointer to c.
func CategoryPtr(c IssueCategory) *IssueCategory { return &c }

// StatusPtr returns a pointer to s.
func StatusPtr(s IssueStatus) *IssueStatus { return &s }
