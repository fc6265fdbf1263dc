// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"net/http"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	facetstore "github.com/alquimista/website/internal/app/store/facets"
	materialstore "github.com/alquimista/website/internal/app/store/materials"
	messagestore "github.com/alquimista/website/internal/app/store/messages"
	milestonestore "github.com/alquimista/website/internal/app/store/milestones"
	topicstore "github.com/alquimista/website/internal/app/store/topics"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the staff dashboard.
type Handler struct {
	db             *mongo.Database
	facetStore     *facetstore.Store
	milestoneStore *milestonestore.Store
	messageStore   *messagestore.Store
	topicStore     *topicstore.Store
	materialStore  *materialstore.Store
	userStore      *userstore.Store
	errLog         *errorsfeature.ErrorLogger
	logger         *zap.Logger
}

// NewHandler creates a new dashboard Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		db:             db,
		facetStore:     facetstore.New(db),
		milestoneStore: milestonestore.New(db),
		messageStore:   messagestore.New(db),
		topicStore:     topicstore.New(db),
		materialStore:  materialstore.New(db),
		userStore:      userstore.New(db),
		errLog:         errLog,
		logger:         logger,
	}
}

// Counts holds the summary numbers shown on the dashboard.
type Counts struct {
	Facets           int64
	ActiveFacets     int64
	Milestones       int64
	ActiveMilestones int64
	Messages         int64
	UnreadMessages   int64
	Users            int64
	Topics           int64
	Materials        int64
}

// facetRow is one facet in the latest-facets list.
type facetRow struct {
	ID     string
	Title  string
	Slug   string
	Active bool
}

// messageRow is one message in the latest-messages list.
type messageRow struct {
	ID      string
	Name    string
	Email   string
	Read    bool
	Created string
}

// DashboardVM is the view model for the staff dashboard.
type DashboardVM struct {
	viewdata.BaseVM
	Counts         Counts
	LatestFacets   []facetRow
	LatestMessages []messageRow
}

// Index renders the staff dashboard.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vm := DashboardVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Dashboard", "/"),
	}

	counts := []struct {
		dst   *int64
		count func() (int64, error)
	}{
		{&vm.Counts.Facets, func() (int64, error) { return h.facetStore.Count(ctx, bson.M{}) }},
		{&vm.Counts.ActiveFacets, func() (int64, error) { return h.facetStore.Count(ctx, bson.M{"active": true}) }},
		{&vm.Counts.Milestones, func() (int64, error) { return h.milestoneStore.Count(ctx, bson.M{}) }},
		{&vm.Counts.ActiveMilestones, func() (int64, error) { return h.milestoneStore.Count(ctx, bson.M{"active": true}) }},
		{&vm.Counts.Messages, func() (int64, error) { return h.messageStore.Count(ctx, bson.M{}) }},
		{&vm.Counts.UnreadMessages, func() (int64, error) { return h.messageStore.CountUnread(ctx) }},
		{&vm.Counts.Users, func() (int64, error) { return h.userStore.Count(ctx, bson.M{}) }},
		{&vm.Counts.Topics, func() (int64, error) { return h.topicStore.Count(ctx, bson.M{}) }},
		{&vm.Counts.Materials, func() (int64, error) { return h.materialStore.Count(ctx, bson.M{}) }},
	}
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			h.errLog.Log(r, "failed to load dashboard counts", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		*c.dst = n
	}

	facets, err := h.facetStore.List(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to list facets", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	for i, f := range facets {
		if i >= 5 {
			break
		}
		vm.LatestFacets = append(vm.LatestFacets, facetRow{
			ID:     f.ID.Hex(),
			Title:  f.Title,
			Slug:   f.Slug,
			Active: f.Active,
		})
	}

	messages, err := h.messageStore.List(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to list messages", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	for i, m := range messages {
		if i >= 5 {
			break
		}
		vm.LatestMessages = append(vm.LatestMessages, messageRow{
			ID:      m.ID.Hex(),
			Name:    m.Name,
			Email:   m.Email,
			Read:    m.Read,
			Created: m.CreatedAt.Format("Jan 2, 2006 3:04 PM"),
		})
	}

	templates.Render(w, r, "dashboard/index", vm)
}
