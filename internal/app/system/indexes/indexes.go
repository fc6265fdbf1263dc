// internal/app/system/indexes/indexes.go
package indexes

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alquimista/website/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// rateLimitTTLSeconds controls how long contact rate-limit windows are kept.
const rateLimitTTLSeconds = 3600

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureFacets(ctx, db); err != nil {
		problems = append(problems, "facets: "+err.Error())
	}
	if err := ensureMilestones(ctx, db); err != nil {
		problems = append(problems, "milestones: "+err.Error())
	}
	if err := ensureMilestoneImages(ctx, db); err != nil {
		problems = append(problems, "milestone_images: "+err.Error())
	}
	if err := ensureContactMessages(ctx, db); err != nil {
		problems = append(problems, "contact_messages: "+err.Error())
	}
	if err := ensureFacetPreferences(ctx, db); err != nil {
		problems = append(problems, "facet_preferences: "+err.Error())
	}
	if err := ensureTopics(ctx, db); err != nil {
		problems = append(problems, "topics: "+err.Error())
	}
	if err := ensureMaterials(ctx, db); err != nil {
		problems = append(problems, "materials: "+err.Error())
	}
	if err := ensureMaterialAttachments(ctx, db); err != nil {
		problems = append(problems, "material attachments: "+err.Error())
	}
	if err := ensureRateLimits(ctx, db); err != nil {
		problems = append(problems, "rate_limits: "+err.Error())
	}
	if err := ensureOAuthStates(ctx, db); err != nil {
		problems = append(problems, "oauth_states: "+err.Error())
	}
	if err := ensureSiteSettings(ctx, db); err != nil {
		problems = append(problems, "site_settings: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Bool("unique", ex.Unique != nil && *ex.Unique),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		if created, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				zap.L().Warn("index ensure failed (options conflict)",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}

			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		} else {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("created_name", created),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Unique case-folded login identifier
		{
			Keys: bson.D{
				{Key: "login_id_ci", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_users_loginidci"),
		},

		// User list queries: role + status + creation date
		{
			Keys: bson.D{
				{Key: "profile.role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_users_role_status_created"),
		},
	})
}

func ensureFacets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("facets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Unique slug for facet URLs and anchors
		{
			Keys: bson.D{
				{Key: "slug", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_facets_slug"),
		},
		// Homepage ordering: active facets by order then title
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "order", Value: 1},
				{Key: "title", Value: 1},
			},
			Options: options.Index().SetName("idx_facets_active_order_title"),
		},
	})
}

func ensureMilestones(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("milestones")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Milestones of one facet in display order
		{
			Keys: bson.D{
				{Key: "facet_id", Value: 1},
				{Key: "order", Value: 1},
				{Key: "year", Value: 1},
			},
			Options: options.Index().SetName("idx_milestones_facet_order_year"),
		},
	})
}

func ensureMilestoneImages(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("milestone_images")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Extra images of one milestone in display order
		{
			Keys: bson.D{
				{Key: "milestone_id", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().SetName("idx_milestoneimages_milestone_order"),
		},
	})
}

func ensureContactMessages(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("contact_messages")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Inbox listing, newest first
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_messages_created"),
		},
		// Unread count badge
		{
			Keys: bson.D{
				{Key: "read", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_messages_read_created"),
		},
	})
}

func ensureFacetPreferences(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("facet_preferences")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One preference row per user+facet; also serves per-user listing
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "facet_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_prefs_user_facet"),
		},
		// Cascade delete when a facet is removed
		{
			Keys: bson.D{
				{Key: "facet_id", Value: 1},
			},
			Options: options.Index().SetName("idx_prefs_facet"),
		},
	})
}

func ensureTopics(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("topics")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Classroom ordering
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "order", Value: 1},
				{Key: "title", Value: 1},
			},
			Options: options.Index().SetName("idx_topics_active_order_title"),
		},
	})
}

func ensureMaterials(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("materials")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Materials of one topic in display order
		{
			Keys: bson.D{
				{Key: "topic_id", Value: 1},
				{Key: "order", Value: 1},
				{Key: "title", Value: 1},
			},
			Options: options.Index().SetName("idx_materials_topic_order_title"),
		},
	})
}

func ensureMaterialAttachments(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// The three attachment kinds live in parallel collections with the same shape.
	for _, kind := range models.AllAttachmentKinds() {
		c := db.Collection(models.AttachmentCollection(kind))
		err := ensureIndexSet(ctx, c, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "material_id", Value: 1},
					{Key: "order", Value: 1},
				},
				Options: options.Index().SetName("idx_attachments_material_order"),
			},
		})
		if err != nil {
			problems = append(problems, c.Name()+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureRateLimits(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("rate_limits")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Unique IP for fast lookups
		{
			Keys: bson.D{
				{Key: "ip", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_ratelimit_ip"),
		},
		// TTL index on window_start - automatically clean up stale windows
		{
			Keys: bson.D{
				{Key: "window_start", Value: 1},
			},
			Options: options.Index().SetExpireAfterSeconds(rateLimitTTLSeconds).SetName("idx_ratelimit_ttl"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("oauth_states")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Unique state token
		{
			Keys: bson.D{
				{Key: "state", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_oauth_state"),
		},
		// TTL index for auto-cleanup of expired states
		{
			Keys: bson.D{
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("idx_oauth_expires_ttl"),
		},
	})
}

func ensureSiteSettings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("site_settings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Unique singleton - only one settings document
		{
			Keys: bson.D{
				{Key: "singleton", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_sitesettings_singleton"),
		},
	})
}
