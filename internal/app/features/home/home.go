// internal/app/features/home/home.go
package home

import (
	"html/template"
	"net/http"
	"sort"

	facetstore "github.com/alquimista/website/internal/app/store/facets"
	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/htmlsanitize"
	"github.com/alquimista/website/internal/app/system/videourl"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the index page.
type Handler struct {
	db          *mongo.Database
	facetStore  *facetstore.Store
	prefStore   *preferencestore.Store
	fileStorage storage.Store
	logger      *zap.Logger
}

// NewHandler creates a new home Handler.
func NewHandler(db *mongo.Database, fileStorage storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		db:          db,
		facetStore:  facetstore.New(db),
		prefStore:   preferencestore.New(db),
		fileStorage: fileStorage,
		logger:      logger,
	}
}

// imageVM is one gallery image of a milestone.
type imageVM struct {
	URL     string
	Caption string
}

// milestoneVM is one milestone slide.
type milestoneVM struct {
	Title       string
	Description template.HTML
	Year        *int
	ImageURL    string
	ImageSize   string
	VideoURL    string // uploaded video file
	EmbedURL    string // hosted video embed (youtube/vimeo)
	Images      []imageVM
}

// facetVM is one facet section with its milestone slides.
type facetVM struct {
	Title           string
	Slug            string
	Description     template.HTML
	HeroImageURL    string
	BackgroundColor string
	TotalSlides     int
	Milestones      []milestoneVM
}

// HomeVM is the view model for the index page.
type HomeVM struct {
	viewdata.BaseVM
	HeroTitle    string
	HeroSubtitle string
	HeroImageURL string
	HeroVideoURL string
	Description  template.HTML
	Facets       []facetVM
}

// Routes returns a chi.Router with home routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	return r
}

// Index renders the index page. Anonymous visitors see every active
// facet; signed-in users see only the facets they picked, ordered by
// their priority. A signed-in user with no picks sees none.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	vm := HomeVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Home", "/"),
	}

	settings := viewdata.GetSettings(r.Context(), h.db)
	vm.HeroTitle = settings.HeroTitle
	if vm.HeroTitle == "" {
		vm.HeroTitle = models.DefaultHeroTitle
	}
	vm.HeroSubtitle = settings.HeroSubtitle
	if vm.HeroSubtitle == "" {
		vm.HeroSubtitle = models.DefaultHeroSubtitle
	}
	if settings.HasHeroImage() {
		vm.HeroImageURL = h.fileStorage.URL(settings.HeroImagePath)
	}
	if settings.HeroVideoPath != "" {
		vm.HeroVideoURL = h.fileStorage.URL(settings.HeroVideoPath)
	}
	vm.Description = htmlsanitize.SanitizeToHTML(settings.Description)

	var onlyIDs []primitive.ObjectID
	var priorities map[primitive.ObjectID]int
	filtered := false
	if user, ok := auth.CurrentUser(r); ok {
		prefs, err := h.prefStore.ListByUser(r.Context(), user.UserID())
		if err != nil {
			h.logger.Warn("failed to load facet preferences",
				zap.String("user_id", user.ID), zap.Error(err))
		} else {
			priorities = make(map[primitive.ObjectID]int, len(prefs))
			for _, p := range prefs {
				priorities[p.FacetID] = p.Priority
				onlyIDs = append(onlyIDs, p.FacetID)
			}
			filtered = true
		}
	}

	if filtered && len(onlyIDs) == 0 {
		// Signed in with no picks: nothing to show
		templates.Render(w, r, "home/index", vm)
		return
	}

	tree, err := h.facetStore.ListTree(r.Context(), onlyIDs)
	if err != nil {
		h.logger.Error("failed to load facets", zap.Error(err))
		templates.Render(w, r, "home/index", vm)
		return
	}
	if filtered {
		tree = orderByPreference(tree, priorities)
	}

	vm.Facets = h.buildFacetVMs(tree)
	templates.Render(w, r, "home/index", vm)
}

// orderByPreference sorts the facet tree by the user's preference
// priority, lowest first. Facets sharing a priority fall back to their
// own display order.
func orderByPreference(tree []facetstore.FacetView, priorities map[primitive.ObjectID]int) []facetstore.FacetView {
	sort.SliceStable(tree, func(i, j int) bool {
		pi, pj := priorities[tree[i].ID], priorities[tree[j].ID]
		if pi != pj {
			return pi < pj
		}
		return tree[i].Order < tree[j].Order
	})
	return tree
}

func (h *Handler) buildFacetVMs(tree []facetstore.FacetView) []facetVM {
	facets := make([]facetVM, 0, len(tree))
	for _, fv := range tree {
		f := facetVM{
			Title:           fv.Title,
			Slug:            fv.Slug,
			Description:     htmlsanitize.SanitizeToHTML(fv.Description),
			BackgroundColor: fv.BackgroundColor,
			TotalSlides:     fv.TotalSlides,
		}
		if fv.HeroImagePath != "" {
			f.HeroImageURL = h.fileStorage.URL(fv.HeroImagePath)
		}

		for _, mv := range fv.Milestones {
			m := milestoneVM{
				Title:       mv.Title,
				Description: htmlsanitize.SanitizeToHTML(mv.Description),
				Year:        mv.Year,
				ImageSize:   mv.ImageSize,
			}
			if mv.ImagePath != "" {
				m.ImageURL = h.fileStorage.URL(mv.ImagePath)
			}
			if mv.VideoPath != "" {
				m.VideoURL = h.fileStorage.URL(mv.VideoPath)
			}
			if mv.VideoProvider != "" && mv.VideoID != "" {
				info := videourl.Info{Provider: mv.VideoProvider, VideoID: mv.VideoID}
				m.EmbedURL = info.EmbedURL()
			}
			for _, img := range mv.Images {
				m.Images = append(m.Images, imageVM{
					URL:     h.fileStorage.URL(img.ImagePath),
					Caption: img.Caption,
				})
			}
			f.Milestones = append(f.Milestones, m)
		}

		facets = append(facets, f)
	}
	return facets
}
