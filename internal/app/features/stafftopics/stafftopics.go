// internal/app/features/stafftopics/stafftopics.go
package stafftopics

import (
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	topicstore "github.com/alquimista/website/internal/app/store/topics"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the staff topic panel.
type Handler struct {
	db         *mongo.Database
	topicStore *topicstore.Store
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new staff topic Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		db:         db,
		topicStore: topicstore.New(db),
		errLog:     errLog,
		logger:     logger,
	}
}

// MountRoutes mounts topic panel routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	// The param name matches the nested materials mount, which hangs a
	// {topicID} subtree off the same position.
	r.Get("/{topicID}/edit", h.showEdit)
	r.Post("/{topicID}", h.update)
	r.Post("/{topicID}/toggle", h.toggle)
	r.Post("/{topicID}/delete", h.delete)
}

// topicRow is one topic in the panel list.
type topicRow struct {
	ID        string
	Title     string
	Order     int
	Active    bool
	Materials int
}

// ListVM is the view model for the topic list.
type ListVM struct {
	viewdata.BaseVM
	Items   []topicRow
	Success string
}

// list displays all topics with their material counts.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topicStore.List(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list topics", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	counts, err := h.topicStore.MaterialCounts(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to count materials", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]topicRow, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, topicRow{
			ID:        t.ID.Hex(),
			Title:     t.Title,
			Order:     t.Order,
			Active:    t.Active,
			Materials: counts[t.ID],
		})
	}

	vm := ListVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Topics", "/staff"),
		Items:  rows,
	}
	switch r.URL.Query().Get("success") {
	case "created":
		vm.Success = "Topic created."
	case "updated":
		vm.Success = "Topic updated."
	case "deleted":
		vm.Success = "Topic and its materials deleted."
	case "toggled":
		vm.Success = "Topic status updated."
	}

	templates.Render(w, r, "stafftopics/list", vm)
}

// FormVM is the view model for the topic create/edit form.
type FormVM struct {
	formutil.Base
	ID          string
	TopicTitle  string
	Description string
	Order       int
	Active      bool
}

// showNew displays the new topic form.
func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	vm := FormVM{
		Base:   formutil.NewBase(r, h.db, "New Topic", "/staff/topics"),
		Active: true,
	}
	templates.Render(w, r, "stafftopics/form", vm)
}

type topicForm struct {
	Title       string
	Description string
	Order       int
	Active      bool
}

func parseTopicForm(r *http.Request) topicForm {
	order, _ := strconv.Atoi(r.FormValue("order"))
	return topicForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Order:       order,
		Active:      r.FormValue("active") == "on",
	}
}

// create creates a new topic.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseTopicForm(r)
	if form.Title == "" {
		h.renderForm(w, r, "", form, "Title is required.")
		return
	}

	_, err := h.topicStore.Create(r.Context(), topicstore.CreateInput{
		Title:       form.Title,
		Description: form.Description,
		Order:       form.Order,
		Active:      form.Active,
	})
	if err != nil {
		h.errLog.Log(r, "failed to create topic", err)
		h.renderForm(w, r, "", form, "Failed to create the topic.")
		return
	}

	http.Redirect(w, r, "/staff/topics?success=created", http.StatusSeeOther)
}

// showEdit displays the edit topic form.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	topic, _ := h.lookup(w, r)
	if topic == nil {
		return
	}

	vm := FormVM{
		Base:        formutil.NewBase(r, h.db, "Edit Topic", "/staff/topics"),
		ID:          topic.ID.Hex(),
		TopicTitle:  topic.Title,
		Description: topic.Description,
		Order:       topic.Order,
		Active:      topic.Active,
	}
	templates.Render(w, r, "stafftopics/form", vm)
}

// update updates a topic.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	topic, objID := h.lookup(w, r)
	if topic == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseTopicForm(r)
	if form.Title == "" {
		h.renderForm(w, r, topic.ID.Hex(), form, "Title is required.")
		return
	}

	err := h.topicStore.Update(r.Context(), objID, topicstore.UpdateInput{
		Title:       &form.Title,
		Description: &form.Description,
		Order:       &form.Order,
		Active:      &form.Active,
	})
	if err != nil {
		h.errLog.Log(r, "failed to update topic", err)
		h.renderForm(w, r, topic.ID.Hex(), form, "Failed to update the topic.")
		return
	}

	http.Redirect(w, r, "/staff/topics?success=updated", http.StatusSeeOther)
}

// toggle flips the active status of a topic.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	topic, objID := h.lookup(w, r)
	if topic == nil {
		return
	}

	if err := h.topicStore.SetActive(r.Context(), objID, !topic.Active); err != nil {
		h.errLog.Log(r, "failed to toggle topic", err)
		http.Redirect(w, r, "/staff/topics?error=toggle_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/topics?success=toggled", http.StatusSeeOther)
}

// delete deletes a topic together with its materials and their attachments.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	topic, objID := h.lookup(w, r)
	if topic == nil {
		return
	}

	if err := h.topicStore.Delete(r.Context(), objID, h.logger); err != nil {
		h.errLog.Log(r, "failed to delete topic", err)
		http.Redirect(w, r, "/staff/topics?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/topics?success=deleted", http.StatusSeeOther)
}

// lookup resolves the {topicID} route param. It writes a 404 and returns
// nil when the topic does not exist.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Topic, primitive.ObjectID) {
	id := chi.URLParam(r, "topicID")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}

	topic, err := h.topicStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}
	return topic, objID
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, form topicForm, errMsg string) {
	title := "New Topic"
	if id != "" {
		title = "Edit Topic"
	}
	vm := FormVM{
		Base:        formutil.NewBase(r, h.db, title, "/staff/topics"),
		ID:          id,
		TopicTitle:  form.Title,
		Description: form.Description,
		Order:       form.Order,
		Active:      form.Active,
	}
	vm.SetError(errMsg)
	templates.Render(w, r, "stafftopics/form", vm)
}
