// internal/domain/models/material.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Material is one unit of class content inside a topic. Its documents,
// videos, and presentations live in separate attachment collections.
type Material struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TopicID     primitive.ObjectID `bson:"topic_id" json:"topic_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Order       int                `bson:"order" json:"order"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Attachment kinds, which double as the collection suffix each kind is
// stored under (material_pdfs, material_videos, material_presentations).
const (
	AttachmentPDF          = "pdf"
	AttachmentVideo        = "video"
	AttachmentPresentation = "presentation"
)

// AllAttachmentKinds returns the attachment kinds in display order.
func AllAttachmentKinds() []string {
	return []string{AttachmentPDF, AttachmentVideo, AttachmentPresentation}
}

// IsValidAttachmentKind checks if the given kind is a known attachment kind.
func IsValidAttachmentKind(kind string) bool {
	switch kind {
	case AttachmentPDF, AttachmentVideo, AttachmentPresentation:
		return true
	}
	return false
}

// AttachmentCollection returns the MongoDB collection name for a kind.
func AttachmentCollection(kind string) string {
	return "material_" + kind + "s"
}

// MaterialAttachment is a single file or link attached to a material.
// Either FilePath (uploaded) or URL (external) is set; video attachments
// require at least one of the two.
type MaterialAttachment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MaterialID  primitive.ObjectID `bson:"material_id" json:"material_id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	FilePath    string             `bson:"file_path,omitempty" json:"file_path,omitempty"`
	URL         string             `bson:"url,omitempty" json:"url,omitempty"`
	Order       int                `bson:"order" json:"order"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// HasSource returns true if the attachment points at something.
func (a *MaterialAttachment) HasSource() bool {
	return a.FilePath != "" || a.URL != ""
}
