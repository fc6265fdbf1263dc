// internal/app/features/classroom/classroom.go
package classroom

import (
	"net/http"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	materialstore "github.com/alquimista/website/internal/app/store/materials"
	topicstore "github.com/alquimista/website/internal/app/store/topics"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/videourl"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the class content pages for students.
type Handler struct {
	db            *mongo.Database
	topicStore    *topicstore.Store
	materialStore *materialstore.Store
	fileStorage   storage.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new classroom Handler.
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

// attachmentVM is one downloadable or embeddable attachment.
type attachmentVM struct {
	Name     string
	URL      string
	EmbedURL string
}

// materialVM is one material with its grouped attachments.
type materialVM struct {
	Title         string
	Description   string
	PDFs          []attachmentVM
	Videos        []attachmentVM
	Presentations []attachmentVM
}

// topicVM is one topic section.
type topicVM struct {
	Title       string
	Description string
	Materials   []materialVM
}

// ClassroomVM is the view model for the class content page.
type ClassroomVM struct {
	viewdata.BaseVM
	Topics []topicVM
}

// Routes returns a chi.Router with classroom routes mounted. Access is
// limited to students (staff may look too).
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireStudent)
	r.Get("/", h.index)
	return r
}

// index renders the active topics with their materials and attachments.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	vm := ClassroomVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Classroom", "/"),
	}

	topics, err := h.topicStore.ListActive(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list topics", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	for _, t := range topics {
		tv := topicVM{
			Title:       t.Title,
			Description: t.Description,
		}

		materials, err := h.materialStore.ListViewByTopic(r.Context(), t.ID)
		if err != nil {
			h.errLog.Log(r, "failed to list materials", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		for _, m := range materials {
			tv.Materials = append(tv.Materials, materialVM{
				Title:         m.Title,
				Description:   m.Description,
				PDFs:          h.attachmentVMs(m.PDFs, false),
				Videos:        h.attachmentVMs(m.Videos, true),
				Presentations: h.attachmentVMs(m.Presentations, false),
			})
		}

		vm.Topics = append(vm.Topics, tv)
	}

	templates.Render(w, r, "classroom/index", vm)
}

// attachmentVMs resolves attachment links. Uploaded files are served
// from storage; external video URLs get an embed URL when the host is
// recognized.
func (h *Handler) attachmentVMs(attachments []models.MaterialAttachment, video bool) []attachmentVM {
	out := make([]attachmentVM, 0, len(attachments))
	for _, a := range attachments {
		av := attachmentVM{Name: a.DisplayName}
		if a.FilePath != "" {
			av.URL = h.fileStorage.URL(a.FilePath)
		} else {
			av.URL = a.URL
		}
		if video && a.URL != "" {
			if info, err := videourl.Parse(a.URL); err == nil {
				av.EmbedURL = info.EmbedURL()
			}
		}
		out = append(out, av)
	}
	return out
}
