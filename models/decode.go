package models

import (
	"context"

	"github.com/apex/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// DecodeIssues drains cursor into issues. Documents that fail to decode are
// logged and skipped, and their count is returned. The error is the cursor's.
func DecodeIssues(ctx context.Context, cursor *mongo.Cursor) ([]Issue, int, error) {
	issues := []Issue{}
	skipped := 0
	for cursor.Next(ctx) {
		var issue Issue
		if err := cursor.Decode(&issue); err != nil {
			skipped++
			log.WithError(err).WithField("id", cursor.Current.Lookup("_id").String()).Warn("skipping undecodable issue")
			continue
		}
		issues = append(issues, issue)
	}
	return issues, skipped, cursor.Err()
}
