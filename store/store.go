// Package store persists users and issues in MongoDB.
package store

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidID  = errors.New("invalid id")
	ErrEmailTaken = errors.New("user with this email already exists")
)

const opTimeout = 10 * time.Second

func objectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}
