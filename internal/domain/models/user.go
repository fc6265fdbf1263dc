// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile carries the public-facing part of an account. It is embedded
// in the user document and written together with it at registration;
// a user never exists without a profile.
type Profile struct {
	Role        string `bson:"role" json:"role"`                                       // visitor, student
	DisplayName string `bson:"display_name,omitempty" json:"display_name,omitempty"`   // name shown on the site
	ExternalID  string `bson:"external_id,omitempty" json:"external_id,omitempty"`     // id in an external roster (students)
	City        string `bson:"city,omitempty" json:"city,omitempty"`
}

// User represents an account on the site.
//
// Auth fields:
//   - LoginID: What the user types to identify themselves (stored lowercase)
//   - LoginIDCI: Case/diacritic-insensitive version for matching (folded)
//   - Email: Contact email (stored lowercase)
type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	LoginID   string `bson:"login_id" json:"login_id"`
	LoginIDCI string `bson:"login_id_ci" json:"login_id_ci"`
	Email     string `bson:"email" json:"email"`

	PasswordHash string `bson:"password_hash,omitempty" json:"-"` // bcrypt hash (never in JSON)

	// Staff may use the management panels; superusers may additionally
	// grant or revoke the superuser flag on other accounts.
	Staff     bool `bson:"staff" json:"staff"`
	Superuser bool `bson:"superuser" json:"superuser"`

	Profile Profile `bson:"profile" json:"profile"`

	Status string `bson:"status,omitempty" json:"status,omitempty"` // active, disabled

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Profile roles
const (
	RoleVisitor = "visitor"
	RoleStudent = "student"
)

// AllRoles returns all valid profile roles.
func AllRoles() []string {
	return []string{RoleVisitor, RoleStudent}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Name returns the best display name for the user: the profile display
// name when set, otherwise the login id.
func (u *User) Name() string {
	if u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	return u.LoginID
}
