// internal/app/features/staffmilestones/staffmilestones.go
package staffmilestones

import (
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	facetstore "github.com/alquimista/website/internal/app/store/facets"
	milestonestore "github.com/alquimista/website/internal/app/store/milestones"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/alquimista/website/internal/app/system/htmlsanitize"
	"github.com/alquimista/website/internal/app/system/uploads"
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

// Handler provides the staff milestone panel.
type Handler struct {
	db             *mongo.Database
	milestoneStore *milestonestore.Store
	facetStore     *facetstore.Store
	fileStorage    storage.Store
	errLog         *errorsfeature.ErrorLogger
	logger         *zap.Logger
}

// NewHandler creates a new staff milestone Handler.
func NewHandler(
	db *mongo.Database,
	fileStorage storage.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:             db,
		milestoneStore: milestonestore.New(db),
		facetStore:     facetstore.New(db),
		fileStorage:    fileStorage,
		errLog:         errLog,
		logger:         logger,
	}
}

// MountRoutes mounts milestone panel routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/toggle", h.toggle)
	r.Post("/{id}/delete", h.delete)
	r.Post("/{id}/images", h.addImage)
	r.Post("/images/{imageID}", h.updateImage)
	r.Post("/images/{imageID}/delete", h.deleteImage)
}

// milestoneRow is one milestone in the panel list.
type milestoneRow struct {
	ID     string
	Title  string
	Facet  string
	Year   string
	Order  int
	Active bool
}

// facetOption is one facet in the filter/select lists.
type facetOption struct {
	ID       string
	Title    string
	Selected bool
}

// ListVM is the view model for the milestone list.
type ListVM struct {
	viewdata.BaseVM
	Items   []milestoneRow
	Facets  []facetOption
	FacetID string
	Success string
}

// list displays milestones, optionally filtered to one facet.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	facets, err := h.facetStore.List(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list facets", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	titles := make(map[primitive.ObjectID]string, len(facets))
	for _, f := range facets {
		titles[f.ID] = f.Title
	}

	facetHex := r.URL.Query().Get("facet")
	var milestones []models.Milestone
	if facetHex != "" {
		facetID, err := primitive.ObjectIDFromHex(facetHex)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		milestones, err = h.milestoneStore.ListByFacet(r.Context(), facetID)
		if err != nil {
			h.errLog.Log(r, "failed to list milestones", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	} else {
		for _, f := range facets {
			ms, err := h.milestoneStore.ListByFacet(r.Context(), f.ID)
			if err != nil {
				h.errLog.Log(r, "failed to list milestones", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			milestones = append(milestones, ms...)
		}
	}

	rows := make([]milestoneRow, 0, len(milestones))
	for _, m := range milestones {
		year := ""
		if m.Year != nil {
			year = strconv.Itoa(*m.Year)
		}
		rows = append(rows, milestoneRow{
			ID:     m.ID.Hex(),
			Title:  m.Title,
			Facet:  titles[m.FacetID],
			Year:   year,
			Order:  m.Order,
			Active: m.Active,
		})
	}

	vm := ListVM{
		BaseVM:  viewdata.NewBaseVM(r, h.db, "Milestones", "/staff"),
		Items:   rows,
		Facets:  facetOptions(facets, facetHex),
		FacetID: facetHex,
	}
	switch r.URL.Query().Get("success") {
	case "created":
		vm.Success = "Milestone created."
	case "updated":
		vm.Success = "Milestone updated."
	case "deleted":
		vm.Success = "Milestone deleted."
	case "toggled":
		vm.Success = "Milestone status updated."
	}

	templates.Render(w, r, "staffmilestones/list", vm)
}

func facetOptions(facets []models.Facet, selected string) []facetOption {
	opts := make([]facetOption, 0, len(facets))
	for _, f := range facets {
		opts = append(opts, facetOption{
			ID:       f.ID.Hex(),
			Title:    f.Title,
			Selected: f.ID.Hex() == selected,
		})
	}
	return opts
}

// imageRow is one gallery image on the edit form.
type imageRow struct {
	ID      string
	URL     string
	Caption string
	Order   int
	Active  bool
}

// FormVM is the view model for the milestone create/edit form.
type FormVM struct {
	formutil.Base
	ID             string
	MilestoneTitle string
	Description    string
	Year           string
	ImageURL       string
	ImageSize      string
	ImageSizes     []string
	VideoFileURL   string
	VideoURL       string
	Order          int
	Active         bool
	Facets         []facetOption
	FacetID        string
	Images         []imageRow
}

// showNew displays the new milestone form.
func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	facets, err := h.facetStore.List(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list facets", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	facetHex := r.URL.Query().Get("facet")
	vm := FormVM{
		Base:       formutil.NewBase(r, h.db, "New Milestone", "/staff/milestones"),
		ImageSize:  models.ImageSizeMedium,
		ImageSizes: models.AllImageSizes(),
		Active:     true,
		Facets:     facetOptions(facets, facetHex),
		FacetID:    facetHex,
	}
	templates.Render(w, r, "staffmilestones/form", vm)
}

// milestoneForm reads the shared create/edit form fields.
type milestoneForm struct {
	FacetID     string
	Title       string
	Description string
	Year        string
	ImageSize   string
	VideoURL    string
	RemoveImage bool
	RemoveVideo bool
	Order       int
	Active      bool
}

func parseMilestoneForm(r *http.Request) milestoneForm {
	order, _ := strconv.Atoi(r.FormValue("order"))
	return milestoneForm{
		FacetID:     r.FormValue("facet_id"),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: htmlsanitize.Sanitize(r.FormValue("description")),
		Year:        strings.TrimSpace(r.FormValue("year")),
		ImageSize:   r.FormValue("image_size"),
		VideoURL:    strings.TrimSpace(r.FormValue("video_url")),
		RemoveImage: r.FormValue("remove_image") != "",
		RemoveVideo: r.FormValue("remove_video") != "",
		Order:       order,
		Active:      r.FormValue("active") == "on",
	}
}

// validate checks the fields that are not simple presence checks. It
// returns a user-facing message, or "".
func (f *milestoneForm) validate() string {
	if f.Title == "" {
		return "Title is required."
	}
	if f.Year != "" {
		year, err := strconv.Atoi(f.Year)
		if err != nil || year < models.MinMilestoneYear || year > models.MaxMilestoneYear {
			return "Year must be between 1900 and 2100."
		}
	}
	if f.ImageSize != "" && !models.IsValidImageSize(f.ImageSize) {
		return "Unknown image size."
	}
	if f.VideoURL != "" && !videourl.IsHosted(f.VideoURL) {
		return "The video URL must be a YouTube or Vimeo link."
	}
	return ""
}

func (f *milestoneForm) yearPtr() *int {
	if f.Year == "" {
		return nil
	}
	year, err := strconv.Atoi(f.Year)
	if err != nil {
		return nil
	}
	return &year
}

// create creates a new milestone.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseMilestoneForm(r)
	facetID, err := primitive.ObjectIDFromHex(form.FacetID)
	if err != nil {
		h.renderForm(w, r, "", form, nil, "Please pick a facet.")
		return
	}
	if msg := form.validate(); msg != "" {
		h.renderForm(w, r, "", form, nil, msg)
		return
	}

	imagePath, err := h.saveUpload(r, "image", "milestones")
	if err != nil {
		h.errLog.Log(r, "failed to upload milestone image", err)
		h.renderForm(w, r, "", form, nil, "Failed to upload the image. Please try again.")
		return
	}
	videoPath, err := h.saveUpload(r, "video", "videos")
	if err != nil {
		h.errLog.Log(r, "failed to upload milestone video", err)
		h.renderForm(w, r, "", form, nil, "Failed to upload the video. Please try again.")
		return
	}

	input := milestonestore.CreateInput{
		FacetID:     facetID,
		Title:       form.Title,
		Description: form.Description,
		Year:        form.yearPtr(),
		ImagePath:   imagePath,
		ImageSize:   form.ImageSize,
		VideoPath:   videoPath,
		Order:       form.Order,
		Active:      form.Active,
	}
	if form.VideoURL != "" {
		info, err := videourl.Parse(form.VideoURL)
		if err != nil {
			h.renderForm(w, r, "", form, nil, "The video URL must be a YouTube or Vimeo link.")
			return
		}
		input.VideoURL = form.VideoURL
		input.VideoProvider = info.Provider
		input.VideoID = info.VideoID
	}

	if _, err := h.milestoneStore.Create(r.Context(), input); err != nil {
		h.errLog.Log(r, "failed to create milestone", err)
		h.renderForm(w, r, "", form, nil, "Failed to create the milestone.")
		return
	}

	http.Redirect(w, r, "/staff/milestones?facet="+form.FacetID+"&success=created", http.StatusSeeOther)
}

// showEdit displays the edit milestone form with its gallery images.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	m, _ := h.lookup(w, r)
	if m == nil {
		return
	}

	facets, err := h.facetStore.List(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list facets", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	year := ""
	if m.Year != nil {
		year = strconv.Itoa(*m.Year)
	}
	vm := FormVM{
		Base:           formutil.NewBase(r, h.db, "Edit Milestone", "/staff/milestones"),
		ID:             m.ID.Hex(),
		MilestoneTitle: m.Title,
		Description:    m.Description,
		Year:           year,
		ImageSize:      m.ImageSize,
		ImageSizes:     models.AllImageSizes(),
		VideoURL:       m.VideoURL,
		Order:          m.Order,
		Active:         m.Active,
		Facets:         facetOptions(facets, m.FacetID.Hex()),
		FacetID:        m.FacetID.Hex(),
	}
	if m.ImagePath != "" {
		vm.ImageURL = h.fileStorage.URL(m.ImagePath)
	}
	if m.VideoPath != "" {
		vm.VideoFileURL = h.fileStorage.URL(m.VideoPath)
	}

	images, err := h.milestoneStore.ListImages(r.Context(), m.ID)
	if err != nil {
		h.errLog.Log(r, "failed to list milestone images", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	for _, img := range images {
		vm.Images = append(vm.Images, imageRow{
			ID:      img.ID.Hex(),
			URL:     h.fileStorage.URL(img.ImagePath),
			Caption: img.Caption,
			Order:   img.Order,
			Active:  img.Active,
		})
	}

	templates.Render(w, r, "staffmilestones/form", vm)
}

// update updates a milestone.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	m, objID := h.lookup(w, r)
	if m == nil {
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseMilestoneForm(r)
	id := m.ID.Hex()
	if msg := form.validate(); msg != "" {
		h.renderForm(w, r, id, form, m, msg)
		return
	}

	input := milestonestore.UpdateInput{
		Title:       &form.Title,
		Description: &form.Description,
		Order:       &form.Order,
		Active:      &form.Active,
	}
	if form.Year == "" {
		input.ClearYear = true
	} else {
		input.Year = form.yearPtr()
	}
	if form.ImageSize != "" {
		input.ImageSize = &form.ImageSize
	}

	imagePath := m.ImagePath
	if form.RemoveImage && imagePath != "" {
		h.deleteStored(r, imagePath)
		imagePath = ""
		input.ImagePath = &imagePath
	}
	if newPath, err := h.saveUpload(r, "image", "milestones"); err != nil {
		h.errLog.Log(r, "failed to upload milestone image", err)
		h.renderForm(w, r, id, form, m, "Failed to upload the image. Please try again.")
		return
	} else if newPath != "" {
		if imagePath != "" {
			h.deleteStored(r, imagePath)
		}
		input.ImagePath = &newPath
	}

	videoPath := m.VideoPath
	if form.RemoveVideo && videoPath != "" {
		h.deleteStored(r, videoPath)
		videoPath = ""
		input.VideoPath = &videoPath
	}
	if newPath, err := h.saveUpload(r, "video", "videos"); err != nil {
		h.errLog.Log(r, "failed to upload milestone video", err)
		h.renderForm(w, r, id, form, m, "Failed to upload the video. Please try again.")
		return
	} else if newPath != "" {
		if videoPath != "" {
			h.deleteStored(r, videoPath)
		}
		input.VideoPath = &newPath
	}

	videoURL := form.VideoURL
	provider := ""
	videoID := ""
	if videoURL != "" {
		info, err := videourl.Parse(videoURL)
		if err != nil {
			h.renderForm(w, r, id, form, m, "The video URL must be a YouTube or Vimeo link.")
			return
		}
		provider = info.Provider
		videoID = info.VideoID
	}
	input.VideoURL = &videoURL
	input.VideoProvider = &provider
	input.VideoID = &videoID

	if err := h.milestoneStore.Update(r.Context(), objID, input); err != nil {
		h.errLog.Log(r, "failed to update milestone", err)
		h.renderForm(w, r, id, form, m, "Failed to update the milestone.")
		return
	}

	http.Redirect(w, r, "/staff/milestones?facet="+m.FacetID.Hex()+"&success=updated", http.StatusSeeOther)
}

// toggle flips the active status of a milestone.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	m, objID := h.lookup(w, r)
	if m == nil {
		return
	}

	if err := h.milestoneStore.SetActive(r.Context(), objID, !m.Active); err != nil {
		h.errLog.Log(r, "failed to toggle milestone", err)
		http.Redirect(w, r, "/staff/milestones?error=toggle_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/milestones?facet="+m.FacetID.Hex()+"&success=toggled", http.StatusSeeOther)
}

// delete deletes a milestone and its gallery images.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	m, objID := h.lookup(w, r)
	if m == nil {
		return
	}

	if err := h.milestoneStore.Delete(r.Context(), objID, h.logger); err != nil {
		h.errLog.Log(r, "failed to delete milestone", err)
		http.Redirect(w, r, "/staff/milestones?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/milestones?facet="+m.FacetID.Hex()+"&success=deleted", http.StatusSeeOther)
}

/* -------------------------------------------------------------------------- */
/* Gallery images                                                             */
/* -------------------------------------------------------------------------- */

// addImage uploads a new gallery image for a milestone.
func (h *Handler) addImage(w http.ResponseWriter, r *http.Request) {
	m, objID := h.lookup(w, r)
	if m == nil {
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	path, err := h.saveUpload(r, "image", "milestones")
	if err != nil || path == "" {
		if err != nil {
			h.errLog.Log(r, "failed to upload gallery image", err)
		}
		http.Redirect(w, r, "/staff/milestones/"+m.ID.Hex()+"/edit?error=image_upload", http.StatusSeeOther)
		return
	}

	order, _ := strconv.Atoi(r.FormValue("order"))
	_, err = h.milestoneStore.AddImage(r.Context(), milestonestore.ImageInput{
		MilestoneID: objID,
		ImagePath:   path,
		Caption:     strings.TrimSpace(r.FormValue("caption")),
		Order:       order,
		Active:      true,
	})
	if err != nil {
		h.errLog.Log(r, "failed to add gallery image", err)
		http.Redirect(w, r, "/staff/milestones/"+m.ID.Hex()+"/edit?error=image_save", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/milestones/"+m.ID.Hex()+"/edit", http.StatusSeeOther)
}

// updateImage updates the caption, order, and active flag of a gallery image.
func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request) {
	img := h.lookupImage(w, r)
	if img == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, _ := strconv.Atoi(r.FormValue("order"))
	caption := strings.TrimSpace(r.FormValue("caption"))
	active := r.FormValue("active") == "on"

	if err := h.milestoneStore.UpdateImage(r.Context(), img.ID, caption, order, active); err != nil {
		h.errLog.Log(r, "failed to update gallery image", err)
	}

	http.Redirect(w, r, "/staff/milestones/"+img.MilestoneID.Hex()+"/edit", http.StatusSeeOther)
}

// deleteImage removes a gallery image and its stored file.
func (h *Handler) deleteImage(w http.ResponseWriter, r *http.Request) {
	img := h.lookupImage(w, r)
	if img == nil {
		return
	}

	if err := h.milestoneStore.DeleteImage(r.Context(), img.ID); err != nil {
		h.errLog.Log(r, "failed to delete gallery image", err)
		http.Redirect(w, r, "/staff/milestones/"+img.MilestoneID.Hex()+"/edit?error=image_delete", http.StatusSeeOther)
		return
	}
	h.deleteStored(r, img.ImagePath)

	http.Redirect(w, r, "/staff/milestones/"+img.MilestoneID.Hex()+"/edit", http.StatusSeeOther)
}

/* -------------------------------------------------------------------------- */
/* Helpers                                                                    */
/* -------------------------------------------------------------------------- */

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Milestone, primitive.ObjectID) {
	objID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}

	m, err := h.milestoneStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}
	return m, objID
}

func (h *Handler) lookupImage(w http.ResponseWriter, r *http.Request) *models.MilestoneImage {
	objID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "imageID"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}

	img, err := h.milestoneStore.GetImage(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	return img
}

// saveUpload stores the named file field if one was submitted. Returns
// "" when the field is empty.
func (h *Handler) saveUpload(r *http.Request, field, kind string) (string, error) {
	_, header, err := r.FormFile(field)
	if err != nil {
		return "", nil
	}
	return uploads.SaveHeader(r.Context(), h.fileStorage, kind, header)
}

func (h *Handler) deleteStored(r *http.Request, path string) {
	if err := h.fileStorage.Delete(r.Context(), path); err != nil {
		h.logger.Warn("failed to delete stored file", zap.String("path", path), zap.Error(err))
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, form milestoneForm, m *models.Milestone, errMsg string) {
	facets, err := h.facetStore.List(r.Context())
	if err != nil {
		h.logger.Warn("failed to list facets for milestone form", zap.Error(err))
	}

	title := "New Milestone"
	if id != "" {
		title = "Edit Milestone"
	}
	vm := FormVM{
		Base:           formutil.NewBase(r, h.db, title, "/staff/milestones"),
		ID:             id,
		MilestoneTitle: form.Title,
		Description:    form.Description,
		Year:           form.Year,
		ImageSize:      form.ImageSize,
		ImageSizes:     models.AllImageSizes(),
		VideoURL:       form.VideoURL,
		Order:          form.Order,
		Active:         form.Active,
		Facets:         facetOptions(facets, form.FacetID),
		FacetID:        form.FacetID,
	}
	if m != nil {
		if m.ImagePath != "" {
			vm.ImageURL = h.fileStorage.URL(m.ImagePath)
		}
		if m.VideoPath != "" {
			vm.VideoFileURL = h.fileStorage.URL(m.VideoPath)
		}
	}
	vm.SetError(errMsg)
	templates.Render(w, r, "staffmilestones/form", vm)
}
