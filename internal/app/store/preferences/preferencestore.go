// internal/app/store/preferences/preferencestore.go
package preferencestore

import (
	"context"
	"time"

	"github.com/alquimista/website/internal/app/system/txn"
	"github.com/alquimista/website/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store provides access to the facet_preferences collection. It holds the
// database handle because replacing a user's preference set is a
// delete-then-insert that runs in a transaction.
type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

// New creates a new preference store.
func New(db *mongo.Database) *Store {
	return &Store{
		db: db,
		c:  db.Collection("facet_preferences"),
	}
}

// Entry is one chosen facet with its priority. Lower priority sorts first.
type Entry struct {
	FacetID  primitive.ObjectID
	Priority int
}

// Replace swaps a user's preference set for the given entries. The old set
// is removed and the new one inserted in a transaction, so a failure never
// leaves the user with a half-written set.
func (s *Store) Replace(ctx context.Context, userID primitive.ObjectID, entries []Entry, log *zap.Logger) error {
	return txn.Run(ctx, s.db, log, func(ctx context.Context) error {
		if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		now := time.Now()
		docs := make([]interface{}, len(entries))
		for i, e := range entries {
			docs[i] = models.FacetPreference{
				ID:        primitive.NewObjectID(),
				UserID:    userID,
				FacetID:   e.FacetID,
				Priority:  e.Priority,
				CreatedAt: now,
			}
		}
		_, err := s.c.InsertMany(ctx, docs)
		return err
	})
}

// CreateMany inserts preference rows without touching existing ones. It is
// used at registration inside the caller's transaction context.
func (s *Store) CreateMany(ctx context.Context, userID primitive.ObjectID, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = models.FacetPreference{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			FacetID:   e.FacetID,
			Priority:  e.Priority,
			CreatedAt: now,
		}
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// ListByUser returns a user's preferences ordered by priority (lowest first).
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.FacetPreference, error) {
	cursor, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var prefs []models.FacetPreference
	if err := cursor.All(ctx, &prefs); err != nil {
		return nil, err
	}

	return prefs, nil
}

// FacetIDsByUser returns just the facet IDs of a user's preferences,
// ordered by priority.
func (s *Store) FacetIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	prefs, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(prefs))
	for i, p := range prefs {
		ids[i] = p.FacetID
	}
	return ids, nil
}

// DeleteByUser removes all preferences of a user (user delete cascade).
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
