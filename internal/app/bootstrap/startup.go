// internal/app/bootstrap/startup.go
package bootstrap

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"strings"
	"time"

	"github.com/alquimista/website/internal/app/resources"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/authutil"
	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/app/system/tasks"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// This is the place for one-time initialization that depends on having live
// database connections and fully loaded configuration. Unlike ConnectDB and
// EnsureSchema which focus on infrastructure, Startup is for application-level
// initialization.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting. Returning nil signals that initialization succeeded.
//
// The context will be cancelled if the process is asked to shut down while
// Startup is running; honor it in any long-running work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	// Note: Indexes are created in EnsureSchema via indexes.EnsureAll().

	// Seed superuser account if configured
	if appCfg.SeedSuperuserLoginID != "" {
		if err := ensureSuperuser(ctx, deps, appCfg, logger); err != nil {
			logger.Error("failed to seed superuser", zap.Error(err))
			return err
		}
	}

	// Start background task runner
	startTaskRunner(deps.MongoDatabase, appCfg, logger)

	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.OAuthStateCleanupJob(db, logger))

	if appCfg.ContactRateLimitEnabled {
		taskRunner.Register(tasks.RateLimitCleanupJob(db, logger, appCfg.ContactRateLimitWindow))
	}

	taskRunner.Start()
}

// ensureSuperuser ensures a staff superuser exists with the configured login_id.
// If a user exists with this login_id, ensure they carry the staff and superuser
// flags. If no user exists, create one with the configured password.
func ensureSuperuser(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	store := userstore.New(deps.MongoDatabase)
	loginID := strings.ToLower(strings.TrimSpace(appCfg.SeedSuperuserLoginID))
	name := strings.TrimSpace(appCfg.SeedSuperuserName)
	if name == "" {
		name = "Admin"
	}

	existing, err := store.GetByLoginID(ctx, loginID)
	if err == nil {
		if existing.Staff && existing.Superuser {
			logger.Debug("superuser already configured", zap.String("login_id", loginID))
			return nil
		}

		// Promote the existing account
		_, err = store.Collection().UpdateByID(ctx, existing.ID, bson.M{
			"$set": bson.M{
				"staff":      true,
				"superuser":  true,
				"updated_at": time.Now().UTC(),
			},
		})
		if err != nil {
			return err
		}
		logger.Info("promoted existing user to superuser",
			zap.String("login_id", loginID),
			zap.String("user_id", existing.ID.Hex()))
		return nil
	}

	if err != mongo.ErrNoDocuments {
		return err
	}

	hash, err := authutil.HashPassword(appCfg.SeedSuperuserPassword)
	if err != nil {
		return err
	}

	created, err := store.Create(ctx, models.User{
		LoginID:      loginID,
		Email:        loginID,
		PasswordHash: hash,
		Staff:        true,
		Superuser:    true,
		Profile: models.Profile{
			Role:        models.RoleVisitor,
			DisplayName: name,
		},
		Status: status.Active,
	})
	if err != nil {
		return err
	}

	logger.Info("created superuser",
		zap.String("login_id", loginID),
		zap.String("user_id", created.ID.Hex()))
	return nil
}
