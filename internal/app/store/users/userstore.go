// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"time"

	"github.com/alquimista/website/internal/app/system/normalize"
	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Collection returns the underlying collection, for callers that need to
// participate in transactions.
func (s *Store) Collection() *mongo.Collection {
	return s.c
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLoginID looks up a user by case/diacritic-insensitive login_id.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	var u models.User
	folded := text.Fold(loginID)
	if err := s.c.FindOne(ctx, bson.M{"login_id_ci": folded}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by email address (case-insensitive).
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

var (
	// ErrDuplicateLoginID is returned when attempting to create a user with a login_id that already exists.
	ErrDuplicateLoginID = errors.New("a user with this login ID already exists")
	errBadRole          = errors.New("invalid role")
	errBadStatus        = errors.New(`status must be "active"|"disabled"`)
)

// Create inserts a new user after normalizing & validating fields.
// The embedded profile is written together with the user document, so the
// two can never exist apart. Callers that also create related records (like
// facet preferences at registration) should run Create inside txn.Run.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	// Normalize core fields
	u.ID = primitive.NewObjectID()
	u.LoginID = normalize.LoginID(u.LoginID)
	u.LoginIDCI = text.Fold(u.LoginID)
	u.Email = normalize.Email(u.Email)
	u.Profile.DisplayName = normalize.Name(u.Profile.DisplayName)
	u.Profile.City = normalize.Name(u.Profile.City)
	u.Profile.Role = normalize.Role(u.Profile.Role)

	if u.Status == "" {
		u.Status = status.Default()
	}

	// Validate role
	if !models.IsValidRole(u.Profile.Role) {
		return models.User{}, errBadRole
	}

	// Validate status
	if !status.IsValid(u.Status) {
		return models.User{}, errBadStatus
	}

	// Timestamps
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	// Insert
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateLoginID
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdateInput holds the optional fields for updating a user.
// All fields are pointers - nil means "don't update this field".
type UpdateInput struct {
	LoginID      *string
	Email        *string
	DisplayName  *string
	ExternalID   *string
	City         *string
	Role         *string
	Status       *string
	Staff        *bool
	Superuser    *bool
	PasswordHash *string
}

// UpdateFromInput updates a user using optional fields.
// Only non-nil fields in input are updated.
// Returns ErrDuplicateLoginID if the login_id already exists for another user.
func (s *Store) UpdateFromInput(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{
		"updated_at": time.Now(),
	}

	if input.LoginID != nil {
		loginID := normalize.LoginID(*input.LoginID)
		set["login_id"] = loginID
		set["login_id_ci"] = text.Fold(loginID)
	}
	if input.Email != nil {
		set["email"] = normalize.Email(*input.Email)
	}
	if input.DisplayName != nil {
		set["profile.display_name"] = normalize.Name(*input.DisplayName)
	}
	if input.ExternalID != nil {
		set["profile.external_id"] = normalize.Name(*input.ExternalID)
	}
	if input.City != nil {
		set["profile.city"] = normalize.Name(*input.City)
	}
	if input.Role != nil {
		role := normalize.Role(*input.Role)
		if !models.IsValidRole(role) {
			return errBadRole
		}
		set["profile.role"] = role
	}
	if input.Status != nil {
		if !status.IsValid(*input.Status) {
			return errBadStatus
		}
		set["status"] = *input.Status
	}
	if input.Staff != nil {
		set["staff"] = *input.Staff
	}
	if input.Superuser != nil {
		set["superuser"] = *input.Superuser
	}
	if input.PasswordHash != nil {
		set["password_hash"] = *input.PasswordHash
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateLoginID
		}
		return err
	}
	return nil
}

// UpdatePassword updates a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	set := bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// Delete deletes a user by ID.
// Returns the number of documents deleted (0 or 1).
// Callers are responsible for cascading related records (facet preferences).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// LoginIDExistsForOther checks if a login_id already exists for a user other than the given ID.
func (s *Store) LoginIDExistsForOther(ctx context.Context, loginID string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"login_id_ci": text.Fold(loginID),
		"_id":         bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil // found another user with this login_id
	}
	if err == mongo.ErrNoDocuments {
		return false, nil // no duplicate
	}
	return false, err // actual error
}

// ExistsByLoginID checks if a user with the given login_id exists.
func (s *Store) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{
		"login_id_ci": text.Fold(loginID),
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountActiveStaff returns the number of active accounts with staff access.
func (s *Store) CountActiveStaff(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"staff":  true,
		"status": status.Active,
	})
}

// Find returns users matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of users matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// ListAll returns all users sorted by login_id.
func (s *Store) ListAll(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.M{"login_id_ci": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
