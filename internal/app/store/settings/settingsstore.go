// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"time"

	"github.com/alquimista/website/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the site_settings collection.
// The site uses a singleton settings document (only one per site).
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("site_settings")}
}

// Get returns the site settings.
// If no settings exist, returns default settings.
func (s *Store) Get(ctx context.Context) (*models.SiteSettings, error) {
	var settings models.SiteSettings
	// Use singleton filter - there's only one settings document
	filter := bson.M{"singleton": true}
	err := s.c.FindOne(ctx, filter).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		// Return default settings
		return &models.SiteSettings{
			SiteName:     models.DefaultSiteName,
			HeroTitle:    models.DefaultHeroTitle,
			HeroSubtitle: models.DefaultHeroSubtitle,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Exists checks if settings have been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	filter := bson.M{"singleton": true}
	count, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateInput holds the fields for updating settings.
type UpdateInput struct {
	SiteName       string
	LogoPath       string
	LogoName       string
	HeroTitle      string
	HeroSubtitle   string
	HeroImagePath  string
	HeroVideoPath  string
	Description    string
	ContactEmail   string
	ContactPhone   string
	ContactAddress string
	FacebookURL    string
	InstagramURL   string
	TwitterURL     string
	LinkedInURL    string
	YouTubeURL     string
	UpdatedByID    *primitive.ObjectID
	UpdatedByName  string
}

// Defaults returns an UpdateInput with the default settings values,
// used to seed the singleton at first startup.
func (s *Store) Defaults() UpdateInput {
	return UpdateInput{
		SiteName:     models.DefaultSiteName,
		HeroTitle:    models.DefaultHeroTitle,
		HeroSubtitle: models.DefaultHeroSubtitle,
	}
}

// Upsert updates or inserts the site settings singleton from UpdateInput.
func (s *Store) Upsert(ctx context.Context, input UpdateInput) error {
	now := time.Now().UTC()

	filter := bson.M{"singleton": true}
	update := bson.M{
		"$set": bson.M{
			"singleton":       true,
			"site_name":       input.SiteName,
			"logo_path":       input.LogoPath,
			"logo_name":       input.LogoName,
			"hero_title":      input.HeroTitle,
			"hero_subtitle":   input.HeroSubtitle,
			"hero_image_path": input.HeroImagePath,
			"hero_video_path": input.HeroVideoPath,
			"description":     input.Description,
			"contact_email":   input.ContactEmail,
			"contact_phone":   input.ContactPhone,
			"contact_address": input.ContactAddress,
			"facebook_url":    input.FacebookURL,
			"instagram_url":   input.InstagramURL,
			"twitter_url":     input.TwitterURL,
			"linkedin_url":    input.LinkedInURL,
			"youtube_url":     input.YouTubeURL,
			"updated_at":      now,
			"updated_by_id":   input.UpdatedByID,
			"updated_by_name": input.UpdatedByName,
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, filter, update, opts)
	return err
}
