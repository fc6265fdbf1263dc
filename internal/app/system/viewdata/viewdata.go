// internal/app/system/viewdata/viewdata.go
package viewdata

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"net/http"

	settingsstore "github.com/alquimista/website/internal/app/store/settings"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/authz"
	"github.com/alquimista/website/internal/app/system/timeouts"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/mongo"
)

// SocialLink is a footer link to a social profile.
type SocialLink struct {
	Name string
	URL  string
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, db, "Page Title", "/default-back"),
//	    // page-specific fields...
//	}
type BaseVM struct {
	// Site settings (from database)
	SiteName     string
	LogoURL      string
	ContactEmail string
	SocialLinks  []SocialLink

	// User context (from auth middleware)
	IsLoggedIn bool
	UserID     string
	LoginID    string // User's login identifier
	Role       string
	UserName   string
	Staff      bool
	Superuser  bool

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
	Notice      string // banner text resolved from the notice query param

	// Security
	CSRFToken string // CSRF token for forms (use in hidden input field)
}

// noticeText maps notice query param codes to banner text.
var noticeText = map[string]string{
	"staff_only":      "That area is limited to staff.",
	"students_only":   "The classroom is limited to students.",
	"welcome_visitor": "Welcome! Your account is ready.",
	"welcome_student": "Welcome! Your student account is ready. The classroom is now open to you.",
	"signed_out":      "You have been signed out.",
	"message_sent":    "Thank you! Your message has been sent.",
}

// storageProvider is set by Init and used to generate logo URLs.
var storageProvider storage.Store

// globalDB is set by Init and used by New() to load settings.
var globalDB *mongo.Database

// Init sets the storage provider and database for viewdata.
// Call this once at startup from bootstrap.
func Init(store storage.Store, db *mongo.Database) {
	storageProvider = store
	globalDB = db
}

// NewBaseVM creates a fully populated BaseVM for a page.
// This is the preferred way to create a BaseVM for embedding in view models.
//
// Parameters:
//   - r: the HTTP request
//   - db: database for loading site settings (can be nil for defaults)
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, db *mongo.Database, title, backDefault string) BaseVM {
	vm := newUserVM(r)
	vm.Title = title
	vm.BackURL = httpnav.ResolveBackURL(r, backDefault)

	if db != nil {
		vm.applySettings(r, db)
	}

	return vm
}

// New creates a BaseVM with site settings loaded from the database.
// This is the standard way to create a BaseVM for most handlers.
func New(r *http.Request) BaseVM {
	vm := newUserVM(r)

	if globalDB != nil {
		vm.applySettings(r, globalDB)
	}

	return vm
}

// newUserVM builds the user and page context shared by New and NewBaseVM.
func newUserVM(r *http.Request) BaseVM {
	role, name, userID, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		IsLoggedIn:  signedIn,
		UserID:      userID.Hex(),
		Role:        role,
		UserName:    name,
		CurrentPath: httpnav.CurrentPath(r),
		Notice:      noticeText[r.URL.Query().Get("notice")],
		CSRFToken:   csrf.Token(r),
	}

	if signedIn {
		if user, ok := auth.CurrentUser(r); ok {
			vm.LoginID = user.LoginID
			vm.Staff = user.Staff
			vm.Superuser = user.Superuser
		}
	}

	return vm
}

// applySettings loads the site settings singleton and fills in the
// settings-driven fields.
func (vm *BaseVM) applySettings(r *http.Request, db *mongo.Database) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	store := settingsstore.New(db)
	settings, err := store.Get(ctx)
	if err != nil || settings == nil {
		return
	}

	vm.SiteName = settings.SiteName
	vm.ContactEmail = settings.ContactEmail
	if settings.HasLogo() && storageProvider != nil {
		vm.LogoURL = storageProvider.URL(settings.LogoPath)
	}

	social := []struct{ name, url string }{
		{"Facebook", settings.FacebookURL},
		{"Instagram", settings.InstagramURL},
		{"Twitter", settings.TwitterURL},
		{"LinkedIn", settings.LinkedInURL},
		{"YouTube", settings.YouTubeURL},
	}
	for _, s := range social {
		if s.url != "" {
			vm.SocialLinks = append(vm.SocialLinks, SocialLink{Name: s.name, URL: s.url})
		}
	}
}

// GetSiteName returns the site name from settings, or the default if not available.
func GetSiteName(ctx context.Context, db *mongo.Database) string {
	if db == nil {
		return models.DefaultSiteName
	}

	store := settingsstore.New(db)
	settings, err := store.Get(ctx)
	if err != nil || settings == nil {
		return models.DefaultSiteName
	}
	return settings.SiteName
}

// GetSettings returns the full site settings, or defaults if not available.
func GetSettings(ctx context.Context, db *mongo.Database) models.SiteSettings {
	if db == nil {
		return models.SiteSettings{SiteName: models.DefaultSiteName}
	}

	store := settingsstore.New(db)
	settings, err := store.Get(ctx)
	if err != nil || settings == nil {
		return models.SiteSettings{SiteName: models.DefaultSiteName}
	}
	return *settings
}
