// internal/app/features/managefacets/managefacets.go
package managefacets

import (
	"net/http"
	"strconv"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	facetstore "github.com/alquimista/website/internal/app/store/facets"
	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the facet preference editor.
type Handler struct {
	db         *mongo.Database
	facetStore *facetstore.Store
	prefStore  *preferencestore.Store
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new manage-facets Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		db:         db,
		facetStore: facetstore.New(db),
		prefStore:  preferencestore.New(db),
		errLog:     errLog,
		logger:     logger,
	}
}

// facetRow is one facet with the user's current selection.
type facetRow struct {
	ID       string
	Title    string
	Checked  bool
	Priority int
}

// ManageVM is the view model for the preference editor.
type ManageVM struct {
	formutil.Base
	Facets  []facetRow
	Success string
}

// Routes returns a chi.Router with preference routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/", h.show)
	r.Post("/", h.save)
	return r
}

// show displays the facet preference form with the user's current picks.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	vm := ManageVM{
		Base: formutil.NewBase(r, h.db, "My Facets", "/"),
	}
	if r.URL.Query().Get("success") == "1" {
		vm.Success = "Your facet choices have been saved."
	}

	rows, err := h.facetRows(r, user.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to load facet preferences", err)
		vm.SetError("Something went wrong. Please try again.")
	}
	vm.Facets = rows

	templates.Render(w, r, "managefacets/form", vm)
}

// save replaces the user's preference set with the submitted one.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	active, err := h.facetStore.ListActive(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list facets", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var entries []preferencestore.Entry
	for _, f := range active {
		hex := f.ID.Hex()
		if r.FormValue("facet_"+hex) == "" {
			continue
		}
		priority, err := strconv.Atoi(r.FormValue("priority_" + hex))
		if err != nil {
			priority = len(entries) + 1
		}
		entries = append(entries, preferencestore.Entry{
			FacetID:  f.ID,
			Priority: priority,
		})
	}

	if err := h.prefStore.Replace(r.Context(), user.UserID(), entries, h.logger); err != nil {
		h.errLog.Log(r, "failed to save facet preferences", err)
		vm := ManageVM{
			Base: formutil.NewBase(r, h.db, "My Facets", "/"),
		}
		rows, _ := h.facetRows(r, user.UserID())
		vm.Facets = rows
		vm.SetError("Failed to save your choices. Please try again.")
		templates.Render(w, r, "managefacets/form", vm)
		return
	}

	http.Redirect(w, r, "/manage-facets?success=1", http.StatusSeeOther)
}

// facetRows lists the active facets with the user's current selection
// applied.
func (h *Handler) facetRows(r *http.Request, userID primitive.ObjectID) ([]facetRow, error) {
	active, err := h.facetStore.ListActive(r.Context())
	if err != nil {
		return nil, err
	}

	prefs, err := h.prefStore.ListByUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	priorities := make(map[primitive.ObjectID]int, len(prefs))
	for _, p := range prefs {
		priorities[p.FacetID] = p.Priority
	}

	rows := make([]facetRow, 0, len(active))
	for i, f := range active {
		row := facetRow{
			ID:       f.ID.Hex(),
			Title:    f.Title,
			Priority: i + 1,
		}
		if p, ok := priorities[f.ID]; ok {
			row.Checked = true
			row.Priority = p
		}
		rows = append(rows, row)
	}
	return rows, nil
}
