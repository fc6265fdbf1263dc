// internal/domain/models/sitesettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettings holds site-wide configuration edited by staff.
// There is exactly one settings document per site (singleton).
type SiteSettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	// Display settings
	SiteName string `bson:"site_name" json:"site_name"` // Name shown in the header and emails

	// Logo (file upload)
	LogoPath string `bson:"logo_path,omitempty" json:"logo_path,omitempty"` // Storage path for uploaded logo
	LogoName string `bson:"logo_name,omitempty" json:"logo_name,omitempty"` // Original filename

	// Hero section on the index page
	HeroTitle     string `bson:"hero_title,omitempty" json:"hero_title,omitempty"`
	HeroSubtitle  string `bson:"hero_subtitle,omitempty" json:"hero_subtitle,omitempty"`
	HeroImagePath string `bson:"hero_image_path,omitempty" json:"hero_image_path,omitempty"`
	HeroVideoPath string `bson:"hero_video_path,omitempty" json:"hero_video_path,omitempty"`

	// About/description block (HTML, sanitized before storage)
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	// Contact info shown in the footer and contact page
	ContactEmail   string `bson:"contact_email,omitempty" json:"contact_email,omitempty"`
	ContactPhone   string `bson:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	ContactAddress string `bson:"contact_address,omitempty" json:"contact_address,omitempty"`

	// Social links
	FacebookURL  string `bson:"facebook_url,omitempty" json:"facebook_url,omitempty"`
	InstagramURL string `bson:"instagram_url,omitempty" json:"instagram_url,omitempty"`
	TwitterURL   string `bson:"twitter_url,omitempty" json:"twitter_url,omitempty"`
	LinkedInURL  string `bson:"linkedin_url,omitempty" json:"linkedin_url,omitempty"`
	YouTubeURL   string `bson:"youtube_url,omitempty" json:"youtube_url,omitempty"`

	// Audit fields
	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty"`
}

// HasLogo returns true if a logo has been uploaded.
func (s *SiteSettings) HasLogo() bool {
	return s.LogoPath != ""
}

// HasHeroImage returns true if a hero image has been uploaded.
func (s *SiteSettings) HasHeroImage() bool {
	return s.HeroImagePath != ""
}

// DefaultSiteName is the default site name used when settings don't exist.
const DefaultSiteName = "Alquimista"

// DefaultHeroTitle is the default hero title on the index page.
const DefaultHeroTitle = "Welcome"

// DefaultHeroSubtitle is the default hero subtitle.
const DefaultHeroSubtitle = "A portfolio of many facets."
