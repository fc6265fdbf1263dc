// internal/app/features/staffmaterials/staffmaterials.go
package staffmaterials

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	materialstore "github.com/alquimista/website/internal/app/store/materials"
	topicstore "github.com/alquimista/website/internal/app/store/topics"
	"github.com/alquimista/website/internal/app/system/formutil"
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

// Form prefixes for the attachment record lists, one per kind.
var attachmentPrefixes = map[string]string{
	models.AttachmentPDF:          "pdf",
	models.AttachmentVideo:        "video",
	models.AttachmentPresentation: "pres",
}

// Handler provides the staff material panel, nested under a topic.
type Handler struct {
	db            *mongo.Database
	topicStore    *topicstore.Store
	materialStore *materialstore.Store
	fileStorage   storage.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new staff material Handler.
func NewHandler(
	db *mongo.Database,
	fileStorage storage.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:            db,
		topicStore:    topicstore.New(db),
		materialStore: materialstore.New(db),
		fileStorage:   fileStorage,
		errLog:        errLog,
		logger:        logger,
	}
}

// MountRoutes mounts material panel routes on the given router. The router
// is expected to be mounted under a path carrying a {topicID} param.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/toggle", h.toggle)
	r.Post("/{id}/delete", h.delete)
}

// materialRow is one material in the panel list.
type materialRow struct {
	ID          string
	Title       string
	Order       int
	Active      bool
	Attachments int
}

// ListVM is the view model for a topic's material list.
type ListVM struct {
	viewdata.BaseVM
	TopicID    string
	TopicTitle string
	Items      []materialRow
	Success    string
}

// list displays the materials of one topic.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}

	materials, err := h.materialStore.ListByTopic(r.Context(), topic.ID)
	if err != nil {
		h.errLog.Log(r, "failed to list materials", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]materialRow, 0, len(materials))
	for _, m := range materials {
		total := 0
		for _, kind := range models.AllAttachmentKinds() {
			attachments, err := h.materialStore.ListAttachments(r.Context(), kind, m.ID)
			if err != nil {
				h.errLog.Log(r, "failed to list attachments", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			total += len(attachments)
		}
		rows = append(rows, materialRow{
			ID:          m.ID.Hex(),
			Title:       m.Title,
			Order:       m.Order,
			Active:      m.Active,
			Attachments: total,
		})
	}

	vm := ListVM{
		BaseVM:     viewdata.NewBaseVM(r, h.db, "Materials: "+topic.Title, "/staff/topics"),
		TopicID:    topic.ID.Hex(),
		TopicTitle: topic.Title,
		Items:      rows,
	}
	switch r.URL.Query().Get("success") {
	case "created":
		vm.Success = "Material created."
	case "updated":
		vm.Success = "Material updated."
	case "deleted":
		vm.Success = "Material deleted."
	case "toggled":
		vm.Success = "Material status updated."
	}

	templates.Render(w, r, "staffmaterials/list", vm)
}

// attachmentRow is one attachment row on the edit form.
type attachmentRow struct {
	ID          string
	DisplayName string
	FileURL     string
	URL         string
	Order       int
	Active      bool
}

// FormVM is the view model for the material create/edit form.
type FormVM struct {
	formutil.Base
	TopicID       string
	TopicTitle    string
	ID            string
	MaterialTitle string
	Description   string
	Order         int
	Active        bool
	PDFs          []attachmentRow
	Videos        []attachmentRow
	Presentations []attachmentRow
}

// showNew displays the new material form.
func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}

	vm := FormVM{
		Base:       formutil.NewBase(r, h.db, "New Material", h.materialsPath(topic.ID)),
		TopicID:    topic.ID.Hex(),
		TopicTitle: topic.Title,
		Active:     true,
	}
	templates.Render(w, r, "staffmaterials/form", vm)
}

type materialForm struct {
	Title       string
	Description string
	Order       int
	Active      bool
}

func parseMaterialForm(r *http.Request) materialForm {
	order, _ := strconv.Atoi(r.FormValue("order"))
	return materialForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Order:       order,
		Active:      r.FormValue("active") == "on",
	}
}

// attachmentRecords reads one kind's record rows from the parsed form,
// storing any uploaded row files first.
func (h *Handler) attachmentRecords(r *http.Request, kind string) ([]materialstore.AttachmentRecord, error) {
	prefix := attachmentPrefixes[kind]
	rows := formutil.Records(r, prefix)

	out := make([]materialstore.AttachmentRecord, 0, len(rows))
	for _, row := range rows {
		rec := materialstore.AttachmentRecord{
			ID:          row.Value("id"),
			DisplayName: row.Value("name"),
			URL:         row.Value("url"),
			Order:       row.Int("order", row.Index+1),
			Active:      row.Bool("active"),
			Delete:      row.Bool("delete"),
		}

		if row.File != nil && !rec.Delete {
			path, err := uploads.SaveHeader(r.Context(), h.fileStorage, "materials", row.File)
			if err != nil {
				return nil, err
			}
			rec.FilePath = path
		}

		out = append(out, rec)
	}
	return out, nil
}

// applyAttachments stores the submitted attachment rows of every kind.
func (h *Handler) applyAttachments(r *http.Request, materialID primitive.ObjectID) error {
	for _, kind := range models.AllAttachmentKinds() {
		records, err := h.attachmentRecords(r, kind)
		if err != nil {
			return err
		}
		if err := h.materialStore.ApplyAttachmentRecords(r.Context(), kind, materialID, records); err != nil {
			return err
		}
	}
	return nil
}

// create creates a new material with its attachments.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseMaterialForm(r)
	if form.Title == "" {
		h.renderForm(w, r, topic, nil, form, "Title is required.")
		return
	}

	material, err := h.materialStore.Create(r.Context(), materialstore.CreateInput{
		TopicID:     topic.ID,
		Title:       form.Title,
		Description: form.Description,
		Order:       form.Order,
		Active:      form.Active,
	})
	if err != nil {
		h.errLog.Log(r, "failed to create material", err)
		h.renderForm(w, r, topic, nil, form, "Failed to create the material.")
		return
	}

	if err := h.applyAttachments(r, material.ID); err != nil {
		if errors.Is(err, materialstore.ErrMissingSource) {
			h.renderForm(w, r, topic, material, form, "Video attachments need an uploaded file or a URL.")
			return
		}
		h.errLog.Log(r, "failed to save attachments", err)
		h.renderForm(w, r, topic, material, form, "Failed to save the attachments.")
		return
	}

	http.Redirect(w, r, h.materialsPath(topic.ID)+"?success=created", http.StatusSeeOther)
}

// showEdit displays the edit material form with its attachment rows.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}
	material, _ := h.lookupMaterial(w, r, topic.ID)
	if material == nil {
		return
	}

	form := materialForm{
		Title:       material.Title,
		Description: material.Description,
		Order:       material.Order,
		Active:      material.Active,
	}
	h.renderForm(w, r, topic, material, form, "")
}

// update updates a material and reconciles its attachments.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}
	material, objID := h.lookupMaterial(w, r, topic.ID)
	if material == nil {
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseMaterialForm(r)
	if form.Title == "" {
		h.renderForm(w, r, topic, material, form, "Title is required.")
		return
	}

	err := h.materialStore.Update(r.Context(), objID, materialstore.UpdateInput{
		Title:       &form.Title,
		Description: &form.Description,
		Order:       &form.Order,
		Active:      &form.Active,
	})
	if err != nil {
		h.errLog.Log(r, "failed to update material", err)
		h.renderForm(w, r, topic, material, form, "Failed to update the material.")
		return
	}

	if err := h.applyAttachments(r, objID); err != nil {
		if errors.Is(err, materialstore.ErrMissingSource) {
			h.renderForm(w, r, topic, material, form, "Video attachments need an uploaded file or a URL.")
			return
		}
		h.errLog.Log(r, "failed to save attachments", err)
		h.renderForm(w, r, topic, material, form, "Failed to save the attachments.")
		return
	}

	http.Redirect(w, r, h.materialsPath(topic.ID)+"?success=updated", http.StatusSeeOther)
}

// toggle flips the active status of a material.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}
	material, objID := h.lookupMaterial(w, r, topic.ID)
	if material == nil {
		return
	}

	if err := h.materialStore.SetActive(r.Context(), objID, !material.Active); err != nil {
		h.errLog.Log(r, "failed to toggle material", err)
		http.Redirect(w, r, h.materialsPath(topic.ID)+"?error=toggle_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.materialsPath(topic.ID)+"?success=toggled", http.StatusSeeOther)
}

// delete deletes a material with its attachments.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	topic := h.lookupTopic(w, r)
	if topic == nil {
		return
	}
	material, objID := h.lookupMaterial(w, r, topic.ID)
	if material == nil {
		return
	}

	if err := h.materialStore.Delete(r.Context(), objID, h.logger); err != nil {
		h.errLog.Log(r, "failed to delete material", err)
		http.Redirect(w, r, h.materialsPath(topic.ID)+"?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.materialsPath(topic.ID)+"?success=deleted", http.StatusSeeOther)
}

func (h *Handler) materialsPath(topicID primitive.ObjectID) string {
	return "/staff/topics/" + topicID.Hex() + "/materials"
}

// lookupTopic resolves the {topicID} route param. It writes a 404 and
// returns nil when the topic does not exist.
func (h *Handler) lookupTopic(w http.ResponseWriter, r *http.Request) *models.Topic {
	id := chi.URLParam(r, "topicID")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return nil
	}

	topic, err := h.topicStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	return topic
}

// lookupMaterial resolves the {id} route param within a topic. It writes a
// 404 and returns nil when the material is missing or belongs elsewhere.
func (h *Handler) lookupMaterial(w http.ResponseWriter, r *http.Request, topicID primitive.ObjectID) (*models.Material, primitive.ObjectID) {
	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}

	material, err := h.materialStore.GetByID(r.Context(), objID)
	if err != nil || material.TopicID != topicID {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}
	return material, objID
}

// attachmentRows loads one kind's stored attachments for the edit form.
func (h *Handler) attachmentRows(r *http.Request, kind string, materialID primitive.ObjectID) ([]attachmentRow, error) {
	attachments, err := h.materialStore.ListAttachments(r.Context(), kind, materialID)
	if err != nil {
		return nil, err
	}

	rows := make([]attachmentRow, 0, len(attachments))
	for _, a := range attachments {
		row := attachmentRow{
			ID:          a.ID.Hex(),
			DisplayName: a.DisplayName,
			URL:         a.URL,
			Order:       a.Order,
			Active:      a.Active,
		}
		if a.FilePath != "" {
			row.FileURL = h.fileStorage.URL(a.FilePath)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// renderForm renders the material form. When material is non-nil its stored
// attachment rows are loaded for display.
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, topic *models.Topic, material *models.Material, form materialForm, errMsg string) {
	title := "New Material"
	id := ""
	if material != nil {
		title = "Edit Material"
		id = material.ID.Hex()
	}

	vm := FormVM{
		Base:          formutil.NewBase(r, h.db, title, h.materialsPath(topic.ID)),
		TopicID:       topic.ID.Hex(),
		TopicTitle:    topic.Title,
		ID:            id,
		MaterialTitle: form.Title,
		Description:   form.Description,
		Order:         form.Order,
		Active:        form.Active,
	}

	if material != nil {
		var err error
		if vm.PDFs, err = h.attachmentRows(r, models.AttachmentPDF, material.ID); err == nil {
			if vm.Videos, err = h.attachmentRows(r, models.AttachmentVideo, material.ID); err == nil {
				vm.Presentations, err = h.attachmentRows(r, models.AttachmentPresentation, material.ID)
			}
		}
		if err != nil {
			h.errLog.Log(r, "failed to list attachments", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	vm.SetError(errMsg)
	templates.Render(w, r, "staffmaterials/form", vm)
}
