// internal/app/features/staffsettings/staffsettings.go
package staffsettings

import (
	"context"
	"net/http"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	settingsstore "github.com/alquimista/website/internal/app/store/settings"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/htmlsanitize"
	"github.com/alquimista/website/internal/app/system/uploads"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxDescriptionLength is the maximum allowed length for the description
// HTML (100KB).
const MaxDescriptionLength = 100000

// Handler provides the staff site settings editor.
type Handler struct {
	db            *mongo.Database
	settingsStore *settingsstore.Store
	fileStorage   storage.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new settings Handler.
func NewHandler(
	db *mongo.Database,
	fileStorage storage.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:            db,
		settingsStore: settingsstore.New(db),
		fileStorage:   fileStorage,
		errLog:        errLog,
		logger:        logger,
	}
}

// MountRoutes mounts settings routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.update)
}

// SettingsVM is the view model for the settings page.
type SettingsVM struct {
	viewdata.BaseVM
	Settings     *models.SiteSettings
	LogoURL      string
	HeroImageURL string
	HeroVideoURL string
	UpdatedBy    string
	UpdatedAt    string
	Success      string
	Error        string
}

// show displays the settings page.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	vm, err := h.settingsVM(r)
	if err != nil {
		h.errLog.Log(r, "failed to get settings", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("success") == "1" {
		vm.Success = "Settings updated."
	}

	templates.Render(w, r, "staffsettings/show", vm)
}

// update saves the settings singleton, handling logo and hero uploads.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	siteName := strings.TrimSpace(r.FormValue("site_name"))
	if siteName == "" {
		h.renderWithError(w, r, "Site name is required.")
		return
	}

	rawDescription := r.FormValue("description")
	if len(rawDescription) > MaxDescriptionLength {
		h.renderWithError(w, r, "Description is too long. Maximum length is 100,000 characters.")
		return
	}
	description := htmlsanitize.Sanitize(rawDescription)

	current, err := h.settingsStore.Get(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to get settings", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logoPath := current.LogoPath
	logoName := current.LogoName
	if r.FormValue("remove_logo") != "" {
		h.deleteStored(ctx, logoPath)
		logoPath, logoName = "", ""
	}
	if _, header, err := r.FormFile("logo"); err == nil && header != nil && header.Size > 0 {
		h.deleteStored(ctx, logoPath)
		logoPath, err = uploads.SaveHeader(ctx, h.fileStorage, "logos", header)
		if err != nil {
			h.errLog.Log(r, "failed to upload logo", err)
			h.renderWithError(w, r, "Failed to upload the logo. Please try again.")
			return
		}
		logoName = header.Filename
	}

	heroImagePath, ok := h.replaceUpload(w, r, "hero_image", "hero", current.HeroImagePath)
	if !ok {
		return
	}
	heroVideoPath, ok := h.replaceUpload(w, r, "hero_video", "hero", current.HeroVideoPath)
	if !ok {
		return
	}

	input := settingsstore.UpdateInput{
		SiteName:       siteName,
		LogoPath:       logoPath,
		LogoName:       logoName,
		HeroTitle:      strings.TrimSpace(r.FormValue("hero_title")),
		HeroSubtitle:   strings.TrimSpace(r.FormValue("hero_subtitle")),
		HeroImagePath:  heroImagePath,
		HeroVideoPath:  heroVideoPath,
		Description:    description,
		ContactEmail:   strings.TrimSpace(r.FormValue("contact_email")),
		ContactPhone:   strings.TrimSpace(r.FormValue("contact_phone")),
		ContactAddress: strings.TrimSpace(r.FormValue("contact_address")),
		FacebookURL:    strings.TrimSpace(r.FormValue("facebook_url")),
		InstagramURL:   strings.TrimSpace(r.FormValue("instagram_url")),
		TwitterURL:     strings.TrimSpace(r.FormValue("twitter_url")),
		LinkedInURL:    strings.TrimSpace(r.FormValue("linkedin_url")),
		YouTubeURL:     strings.TrimSpace(r.FormValue("youtube_url")),
	}

	if user, ok := auth.CurrentUser(r); ok {
		id := user.UserID()
		input.UpdatedByID = &id
		input.UpdatedByName = user.Name
	}

	if err := h.settingsStore.Upsert(ctx, input); err != nil {
		h.errLog.Log(r, "failed to update settings", err)
		h.renderWithError(w, r, "Failed to save settings.")
		return
	}

	http.Redirect(w, r, "/staff/settings?success=1", http.StatusSeeOther)
}

// replaceUpload handles one optional file field with a matching
// "remove_<field>" checkbox. It returns the resulting storage path; ok is
// false when a response has already been written.
func (h *Handler) replaceUpload(w http.ResponseWriter, r *http.Request, field, kind, currentPath string) (string, bool) {
	ctx := r.Context()
	path := currentPath

	if r.FormValue("remove_"+field) != "" {
		h.deleteStored(ctx, path)
		path = ""
	}

	_, header, err := r.FormFile(field)
	if err != nil || header == nil || header.Size == 0 {
		return path, true
	}

	h.deleteStored(ctx, path)
	path, err = uploads.SaveHeader(ctx, h.fileStorage, kind, header)
	if err != nil {
		h.errLog.Log(r, "failed to upload "+field, err)
		h.renderWithError(w, r, "Failed to upload the file. Please try again.")
		return "", false
	}
	return path, true
}

func (h *Handler) deleteStored(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := h.fileStorage.Delete(ctx, path); err != nil {
		h.logger.Warn("failed to delete stored file",
			zap.String("path", path), zap.Error(err))
	}
}

func (h *Handler) settingsVM(r *http.Request) (SettingsVM, error) {
	settings, err := h.settingsStore.Get(r.Context())
	if err != nil {
		return SettingsVM{}, err
	}

	vm := SettingsVM{
		BaseVM:   viewdata.NewBaseVM(r, h.db, "Site Settings", "/staff"),
		Settings: settings,
	}
	if settings.HasLogo() {
		vm.LogoURL = h.fileStorage.URL(settings.LogoPath)
	}
	if settings.HasHeroImage() {
		vm.HeroImageURL = h.fileStorage.URL(settings.HeroImagePath)
	}
	if settings.HeroVideoPath != "" {
		vm.HeroVideoURL = h.fileStorage.URL(settings.HeroVideoPath)
	}
	vm.UpdatedBy = settings.UpdatedByName
	if settings.UpdatedAt != nil {
		vm.UpdatedAt = settings.UpdatedAt.Format("Jan 2, 2006 3:04 PM")
	}
	return vm, nil
}

func (h *Handler) renderWithError(w http.ResponseWriter, r *http.Request, errMsg string) {
	vm, err := h.settingsVM(r)
	if err != nil {
		h.errLog.Log(r, "failed to get settings", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	vm.Error = errMsg
	templates.Render(w, r, "staffsettings/show", vm)
}
