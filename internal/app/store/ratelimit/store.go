// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Window tracks contact form submissions from a single IP address inside
// the current counting window.
type Window struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	IP          string             `bson:"ip"`           // Client IP address
	WindowStart time.Time          `bson:"window_start"` // When the current counting window started
	Count       int                `bson:"count"`        // Submissions in the current window
}

// Store manages per-IP rate limit tracking for contact form submissions.
type Store struct {
	c      *mongo.Collection
	max    int
	window time.Duration
}

// New creates a new rate limit Store with the given configuration.
// max is the number of submissions allowed per IP within one window.
func New(db *mongo.Database, max int, window time.Duration) *Store {
	return &Store{
		c:      db.Collection("rate_limits"),
		max:    max,
		window: window,
	}
}

// Max returns the configured per-window submission cap.
func (s *Store) Max() int {
	return s.max
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Unique index on ip for fast lookups
		{
			Keys:    bson.D{{Key: "ip", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_ratelimit_ip"),
		},
		// TTL index on window_start - automatically clean up stale windows
		{
			Keys:    bson.D{{Key: "window_start", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(3600).SetName("idx_ratelimit_ttl"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// normalizeIP trims the IP string for consistent lookups.
func normalizeIP(ip string) string {
	return strings.TrimSpace(ip)
}

// Allow records a submission attempt for the given IP and reports whether it
// falls within the per-window cap. The increment-and-check runs as a single
// FindOneAndUpdate so concurrent submissions from one IP cannot both slip
// under the cap.
//
// The pipeline update keeps the window and increments the count while the
// window is still fresh, and resets to a new window of one otherwise.
// Returns the updated count alongside the verdict.
func (s *Store) Allow(ctx context.Context, ip string) (allowed bool, count int, err error) {
	ip = normalizeIP(ip)
	now := time.Now().UTC()
	cutoff := now.Add(-s.window)

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ip": ip,
			"window_start": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$window_start", cutoff}},
				"$window_start",
				now,
			}},
			"count": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$window_start", cutoff}},
				bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$count", 0}}, 1}},
				1,
			}},
		}}},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var w Window
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"ip": ip}, update, opts).Decode(&w); err != nil {
		return false, 0, err
	}

	return w.Count <= s.max, w.Count, nil
}

// Refund walks back one counted submission for the IP. Used when a
// submission that consumed a slot fails to persist, so the cap keeps
// counting accepted messages only.
func (s *Store) Refund(ctx context.Context, ip string) error {
	ip = normalizeIP(ip)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"ip": ip, "count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"count": -1}})
	return err
}

// Get returns the current window record for an IP (for debugging/admin).
func (s *Store) Get(ctx context.Context, ip string) (*Window, error) {
	ip = normalizeIP(ip)
	var w Window
	err := s.c.FindOne(ctx, bson.M{"ip": ip}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Clear removes the rate limit record for the given IP.
func (s *Store) Clear(ctx context.Context, ip string) error {
	ip = normalizeIP(ip)
	_, err := s.c.DeleteOne(ctx, bson.M{"ip": ip})
	return err
}
