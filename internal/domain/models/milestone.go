// internal/domain/models/milestone.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Image size presets for milestone images.
const (
	ImageSizeSmall  = "small"
	ImageSizeMedium = "medium"
	ImageSizeLarge  = "large"
	ImageSizeFull   = "full"
)

// AllImageSizes returns the valid image size presets.
func AllImageSizes() []string {
	return []string{ImageSizeSmall, ImageSizeMedium, ImageSizeLarge, ImageSizeFull}
}

// IsValidImageSize checks if a size is a valid preset.
func IsValidImageSize(size string) bool {
	for _, s := range AllImageSizes() {
		if s == size {
			return true
		}
	}
	return false
}

// Video providers recognized for external milestone videos.
const (
	VideoProviderYouTube = "youtube"
	VideoProviderVimeo   = "vimeo"
)

// Milestone year bounds. Year is optional; when present it must fall in range.
const (
	MinMilestoneYear = 1900
	MaxMilestoneYear = 2100
)

// Milestone is a single entry inside a facet: a slide with text and
// optional media (image, gallery, uploaded video, or external video).
type Milestone struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FacetID     primitive.ObjectID `bson:"facet_id" json:"facet_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"` // HTML, sanitized before storage

	// Year is optional. nil means the milestone is undated.
	Year *int `bson:"year,omitempty" json:"year,omitempty"`

	// Primary image with a display size preset
	ImagePath string `bson:"image_path,omitempty" json:"image_path,omitempty"`
	ImageSize string `bson:"image_size,omitempty" json:"image_size,omitempty"` // small, medium, large, full

	// Video: either an uploaded file or an external URL. When a URL is
	// set, provider and provider video id are extracted at save time.
	VideoPath     string `bson:"video_path,omitempty" json:"video_path,omitempty"`
	VideoURL      string `bson:"video_url,omitempty" json:"video_url,omitempty"`
	VideoProvider string `bson:"video_provider,omitempty" json:"video_provider,omitempty"` // youtube, vimeo
	VideoID       string `bson:"video_id,omitempty" json:"video_id,omitempty"`

	Order  int  `bson:"order" json:"order"`
	Active bool `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasVideo returns true if the milestone has any video, uploaded or external.
func (m *Milestone) HasVideo() bool {
	return m.VideoPath != "" || m.VideoURL != ""
}

// MilestoneImage is one gallery image attached to a milestone.
type MilestoneImage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MilestoneID primitive.ObjectID `bson:"milestone_id" json:"milestone_id"`
	ImagePath   string             `bson:"image_path" json:"image_path"`
	Caption     string             `bson:"caption,omitempty" json:"caption,omitempty"`
	Order       int                `bson:"order" json:"order"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
