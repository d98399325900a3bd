package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"civicsync/metrics"
	"civicsync/models"
)

// changeStreamUnsupported is the server error code for change streams on a
// standalone deployment.
const changeStreamUnsupported = 40573

// MongoSource reads issues from a collection and watches it with a change
// stream, falling back to polling when the deployment has no oplog.
type MongoSource struct {
	coll         *mongo.Collection
	pollInterval time.Duration
	newBackOff   func() backoff.BackOff
}

// NewMongoSource creates a source over coll.
func NewMongoSource(coll *mongo.Collection, pollInterval time.Duration) *MongoSource {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &MongoSource{
		coll:         coll,
		pollInterval: pollInterval,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Second
			bo.MaxInterval = 30 * time.Second
			bo.MaxElapsedTime = 0
			return bo
		},
	}
}

// Snapshot implements Source.
func (s *MongoSource) Snapshot(ctx context.Context) ([]models.Issue, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find issues: %w", err)
	}
	defer cursor.Close(ctx)

	issues, skipped, err := models.DecodeIssues(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}
	if skipped > 0 {
		metrics.FeedErrors.WithLabelValues("decode").Add(float64(skipped))
	}
	return issues, nil
}

// Watch implements Source. The change stream is reopened with exponential
// backoff when it breaks.
func (s *MongoSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		bo := backoff.WithContext(s.newBackOff(), ctx)

		for {
			opened, err := s.stream(ctx, ch)
			if ctx.Err() != nil {
				return
			}
			if isChangeStreamUnsupported(err) {
				log.Warnf("change streams unavailable, polling issues every %s", s.pollInterval)
				s.poll(ctx, ch)
				return
			}
			if opened {
				bo.Reset()
			}

			metrics.FeedErrors.WithLabelValues("watch").Inc()
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				return
			}
			log.WithError(err).Warnf("issue change stream interrupted, reconnecting in %s", wait)

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()

	return ch, nil
}

// stream forwards change events until the stream fails. It signals once
// right after opening so changes missed while disconnected are picked up.
func (s *MongoSource) stream(ctx context.Context, ch chan<- struct{}) (bool, error) {
	cs, err := s.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return false, err
	}
	defer cs.Close(context.Background())

	notify(ch)
	for cs.Next(ctx) {
		notify(ch)
	}
	if err := cs.Err(); err != nil {
		return true, err
	}
	return true, errors.New("change stream closed")
}

func (s *MongoSource) poll(ctx context.Context, ch chan<- struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notify(ch)
		}
	}
}

func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func isChangeStreamUnsupported(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(changeStreamUnsupported)
}
