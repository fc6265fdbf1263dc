// internal/app/features/stafffacets/stafffacets.go
package stafffacets

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	facetstore "github.com/alquimista/website/internal/app/store/facets"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/alquimista/website/internal/app/system/htmlsanitize"
	"github.com/alquimista/website/internal/app/system/uploads"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the staff facet panel.
type Handler struct {
	db          *mongo.Database
	facetStore  *facetstore.Store
	fileStorage storage.Store
	errLog      *errorsfeature.ErrorLogger
	logger      *zap.Logger
}

// NewHandler creates a new staff facet Handler.
func NewHandler(
	db *mongo.Database,
	fileStorage storage.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:          db,
		facetStore:  facetstore.New(db),
		fileStorage: fileStorage,
		errLog:      errLog,
		logger:      logger,
	}
}

// MountRoutes mounts facet panel routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/toggle", h.toggle)
	r.Post("/{id}/delete", h.delete)
}

// facetRow is one facet in the panel list.
type facetRow struct {
	ID         string
	Title      string
	Slug       string
	Order      int
	Active     bool
	Milestones int
}

// ListVM is the view model for the facet list.
type ListVM struct {
	viewdata.BaseVM
	Items   []facetRow
	Success string
}

// list displays all facets with their milestone counts.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	facets, err := h.facetStore.List(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list facets", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	counts, err := h.facetStore.MilestoneCounts(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to count milestones", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]facetRow, 0, len(facets))
	for _, f := range facets {
		rows = append(rows, facetRow{
			ID:         f.ID.Hex(),
			Title:      f.Title,
			Slug:       f.Slug,
			Order:      f.Order,
			Active:     f.Active,
			Milestones: counts[f.ID],
		})
	}

	vm := ListVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Facets", "/staff"),
		Items:  rows,
	}
	switch r.URL.Query().Get("success") {
	case "created":
		vm.Success = "Facet created."
	case "updated":
		vm.Success = "Facet updated."
	case "deleted":
		vm.Success = "Facet deleted."
	case "toggled":
		vm.Success = "Facet status updated."
	}

	templates.Render(w, r, "stafffacets/list", vm)
}

// FormVM is the view model for the facet create/edit form.
type FormVM struct {
	formutil.Base
	ID              string
	FacetTitle      string
	Description     string
	BackgroundColor string
	Slug            string
	Order           int
	Active          bool
	HeroImageURL    string
}

// showNew displays the new facet form.
func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	vm := FormVM{
		Base:   formutil.NewBase(r, h.db, "New Facet", "/staff/facets"),
		Active: true,
	}
	templates.Render(w, r, "stafffacets/form", vm)
}

// facetForm reads the shared create/edit form fields.
type facetForm struct {
	Title           string
	Description     string
	BackgroundColor string
	Slug            string
	Order           int
	Active          bool
	RemoveHero      bool
}

func parseFacetForm(r *http.Request) facetForm {
	order, _ := strconv.Atoi(r.FormValue("order"))
	return facetForm{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Description:     htmlsanitize.Sanitize(r.FormValue("description")),
		BackgroundColor: strings.TrimSpace(r.FormValue("background_color")),
		Slug:            strings.TrimSpace(r.FormValue("slug")),
		Order:           order,
		Active:          r.FormValue("active") == "on",
		RemoveHero:      r.FormValue("remove_hero") != "",
	}
}

// create creates a new facet.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseFacetForm(r)
	if form.Title == "" {
		h.renderForm(w, r, "", form, "", "Title is required.")
		return
	}

	heroPath := ""
	if _, header, err := r.FormFile("hero_image"); err == nil {
		heroPath, err = uploads.SaveHeader(r.Context(), h.fileStorage, "facets", header)
		if err != nil {
			h.errLog.Log(r, "failed to upload facet hero image", err)
			h.renderForm(w, r, "", form, "", "Failed to upload the hero image. Please try again.")
			return
		}
	}

	_, err := h.facetStore.Create(r.Context(), facetstore.CreateInput{
		Title:           form.Title,
		Description:     form.Description,
		HeroImagePath:   heroPath,
		BackgroundColor: form.BackgroundColor,
		Slug:            form.Slug,
		Order:           form.Order,
		Active:          form.Active,
	})
	if err != nil {
		if errors.Is(err, facetstore.ErrDuplicateSlug) {
			h.renderForm(w, r, "", form, "", "A facet with this slug already exists.")
			return
		}
		h.errLog.Log(r, "failed to create facet", err)
		h.renderForm(w, r, "", form, "", "Failed to create the facet.")
		return
	}

	http.Redirect(w, r, "/staff/facets?success=created", http.StatusSeeOther)
}

// showEdit displays the edit facet form.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	facet, _ := h.lookup(w, r)
	if facet == nil {
		return
	}

	vm := FormVM{
		Base:            formutil.NewBase(r, h.db, "Edit Facet", "/staff/facets"),
		ID:              facet.ID.Hex(),
		FacetTitle:      facet.Title,
		Description:     facet.Description,
		BackgroundColor: facet.BackgroundColor,
		Slug:            facet.Slug,
		Order:           facet.Order,
		Active:          facet.Active,
	}
	if facet.HeroImagePath != "" {
		vm.HeroImageURL = h.fileStorage.URL(facet.HeroImagePath)
	}

	templates.Render(w, r, "stafffacets/form", vm)
}

// update updates a facet.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	facet, objID := h.lookup(w, r)
	if facet == nil {
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseFacetForm(r)
	id := facet.ID.Hex()
	if form.Title == "" {
		h.renderForm(w, r, id, form, h.heroURL(facet.HeroImagePath), "Title is required.")
		return
	}

	heroPath := facet.HeroImagePath
	if form.RemoveHero && heroPath != "" {
		if err := h.fileStorage.Delete(r.Context(), heroPath); err != nil {
			h.logger.Warn("failed to delete old hero image",
				zap.String("path", heroPath), zap.Error(err))
		}
		heroPath = ""
	}
	if _, header, err := r.FormFile("hero_image"); err == nil && header != nil && header.Size > 0 {
		if heroPath != "" {
			if err := h.fileStorage.Delete(r.Context(), heroPath); err != nil {
				h.logger.Warn("failed to delete old hero image",
					zap.String("path", heroPath), zap.Error(err))
			}
		}
		heroPath, err = uploads.SaveHeader(r.Context(), h.fileStorage, "facets", header)
		if err != nil {
			h.errLog.Log(r, "failed to upload facet hero image", err)
			h.renderForm(w, r, id, form, "", "Failed to upload the hero image. Please try again.")
			return
		}
	}

	err := h.facetStore.Update(r.Context(), objID, facetstore.UpdateInput{
		Title:           &form.Title,
		Description:     &form.Description,
		HeroImagePath:   &heroPath,
		BackgroundColor: &form.BackgroundColor,
		Slug:            &form.Slug,
		Order:           &form.Order,
		Active:          &form.Active,
	})
	if err != nil {
		if errors.Is(err, facetstore.ErrDuplicateSlug) {
			h.renderForm(w, r, id, form, h.heroURL(heroPath), "A facet with this slug already exists.")
			return
		}
		h.errLog.Log(r, "failed to update facet", err)
		h.renderForm(w, r, id, form, h.heroURL(heroPath), "Failed to update the facet.")
		return
	}

	http.Redirect(w, r, "/staff/facets?success=updated", http.StatusSeeOther)
}

// toggle flips the active status of a facet.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	facet, objID := h.lookup(w, r)
	if facet == nil {
		return
	}

	if err := h.facetStore.SetActive(r.Context(), objID, !facet.Active); err != nil {
		h.errLog.Log(r, "failed to toggle facet", err)
		http.Redirect(w, r, "/staff/facets?error=toggle_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/facets?success=toggled", http.StatusSeeOther)
}

// delete deletes a facet with its milestones, images, and preferences.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	facet, objID := h.lookup(w, r)
	if facet == nil {
		return
	}

	if err := h.facetStore.Delete(r.Context(), objID, h.logger); err != nil {
		h.errLog.Log(r, "failed to delete facet", err)
		http.Redirect(w, r, "/staff/facets?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/facets?success=deleted", http.StatusSeeOther)
}

// lookup resolves the {id} route param. It writes a 404 and returns nil
// when the facet does not exist.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Facet, primitive.ObjectID) {
	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}

	facet, err := h.facetStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}
	return facet, objID
}

func (h *Handler) heroURL(path string) string {
	if path == "" {
		return ""
	}
	return h.fileStorage.URL(path)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, form facetForm, heroURL, errMsg string) {
	title := "New Facet"
	if id != "" {
		title = "Edit Facet"
	}
	vm := FormVM{
		Base:            formutil.NewBase(r, h.db, title, "/staff/facets"),
		ID:              id,
		FacetTitle:      form.Title,
		Description:     form.Description,
		BackgroundColor: form.BackgroundColor,
		Slug:            form.Slug,
		Order:           form.Order,
		Active:          form.Active,
		HeroImageURL:    heroURL,
	}
	vm.SetError(errMsg)
	templates.Render(w, r, "stafffacets/form", vm)
}
