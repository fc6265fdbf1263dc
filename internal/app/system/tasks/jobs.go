// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
func OAuthStateCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			coll := db.Collection("oauth_states")
			result, err := coll.DeleteMany(ctx, bson.M{
				"expires_at": bson.M{"$lt": time.Now()},
			})
			if err != nil {
				return err
			}
			if result.DeletedCount > 0 {
				logger.Info("cleaned up expired oauth states",
					zap.Int64("deleted", result.DeletedCount))
			}
			return nil
		},
	}
}

// RateLimitCleanupJob creates a job that removes contact rate limit windows
// whose counting window has long expired. The TTL index on window_start does
// the same work server-side; this job covers deployments where TTL monitors
// are disabled.
func RateLimitCleanupJob(db *mongo.Database, logger *zap.Logger, window time.Duration) Job {
	return Job{
		Name:     "rate-limit-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			coll := db.Collection("rate_limits")
			cutoff := time.Now().UTC().Add(-2 * window)
			result, err := coll.DeleteMany(ctx, bson.M{
				"window_start": bson.M{"$lt": cutoff},
			})
			if err != nil {
				return err
			}
			if result.DeletedCount > 0 {
				logger.Info("cleaned up stale rate limit windows",
					zap.Int64("deleted", result.DeletedCount))
			}
			return nil
		},
	}
}
