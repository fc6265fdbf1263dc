// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	settingsstore "github.com/alquimista/website/internal/app/store/settings"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if err := seedSiteSettings(ctx, db, logger); err != nil {
		return err
	}
	return nil
}

// seedSiteSettings creates the site settings singleton with defaults if it
// doesn't exist yet, so the staff settings page always has a row to edit.
func seedSiteSettings(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := settingsstore.New(db)

	exists, err := store.Exists(ctx)
	if err != nil {
		logger.Error("failed to check site settings", zap.Error(err))
		return err
	}
	if exists {
		return nil
	}

	defaults := store.Defaults()
	if err := store.Upsert(ctx, defaults); err != nil {
		logger.Error("failed to seed site settings", zap.Error(err))
		return err
	}
	logger.Info("seeded default site settings", zap.String("site_name", defaults.SiteName))
	return nil
}
