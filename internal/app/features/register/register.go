// internal/app/features/register/register.go
package register

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	facetstore "github.com/alquimista/website/internal/app/store/facets"
	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/authutil"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/alquimista/website/internal/app/system/inputval"
	"github.com/alquimista/website/internal/app/system/mailer"
	"github.com/alquimista/website/internal/app/system/txn"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides registration handlers.
type Handler struct {
	db         *mongo.Database
	userStore  *userstore.Store
	facetStore *facetstore.Store
	prefStore  *preferencestore.Store
	sessionMgr *auth.SessionManager
	mailer     *mailer.Mailer
	errLog     *errorsfeature.ErrorLogger
	baseURL    string
	logger     *zap.Logger
}

// NewHandler creates a new register Handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	m *mailer.Mailer,
	errLog *errorsfeature.ErrorLogger,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:         db,
		userStore:  userstore.New(db),
		facetStore: facetstore.New(db),
		prefStore:  preferencestore.New(db),
		sessionMgr: sessionMgr,
		mailer:     m,
		errLog:     errLog,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// RegisterInput holds the registration form fields.
type RegisterInput struct {
	LoginID     string `validate:"required,min=3,max=150" label:"Login ID"`
	Email       string `validate:"required,contains=@,max=254" label:"Email"`
	Password    string `validate:"required" label:"Password"`
	Role        string `validate:"required,role" label:"Role"`
	DisplayName string `validate:"max=200" label:"Display name"`
	ExternalID  string `validate:"max=100" label:"Student ID"`
	City        string `validate:"max=200" label:"City"`
}

// facetOption is one facet on the registration form.
type facetOption struct {
	ID       string
	Title    string
	Checked  bool
	Priority int
}

// RegisterVM is the view model for the registration form.
type RegisterVM struct {
	formutil.Base
	LoginID     string
	Email       string
	Role        string
	DisplayName string
	ExternalID  string
	City        string
	Facets      []facetOption
}

// Routes returns a chi.Router with registration routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Post("/", h.submit)
	return r
}

// show displays the registration form.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	vm := RegisterVM{
		Base: formutil.NewBase(r, h.db, "Register", "/"),
		Role: models.RoleVisitor,
	}
	vm.Facets = h.facetOptions(r, nil)
	templates.Render(w, r, "register/form", vm)
}

// submit creates the account. The user record (with its embedded
// profile) and the chosen facet preferences are written in one
// transaction; the welcome email and auto-login happen after.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	input := RegisterInput{
		LoginID:     strings.TrimSpace(r.FormValue("login_id")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		Role:        r.FormValue("role"),
		DisplayName: strings.TrimSpace(r.FormValue("display_name")),
		ExternalID:  strings.TrimSpace(r.FormValue("external_id")),
		City:        strings.TrimSpace(r.FormValue("city")),
	}

	if result := inputval.Validate(input); result.HasErrors() {
		h.renderForm(w, r, input, result.First())
		return
	}
	if err := authutil.ValidatePassword(input.Password); err != nil {
		h.renderForm(w, r, input, err.Error())
		return
	}
	if input.Password != r.FormValue("confirm_password") {
		h.renderForm(w, r, input, "Passwords do not match.")
		return
	}

	hash, err := authutil.HashPassword(input.Password)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		h.renderForm(w, r, input, "Something went wrong. Please try again.")
		return
	}

	entries, err := h.preferenceEntries(r)
	if err != nil {
		h.errLog.Log(r, "failed to resolve facet preferences", err)
		h.renderForm(w, r, input, "Something went wrong. Please try again.")
		return
	}

	var user models.User
	err = txn.Run(r.Context(), h.db, h.logger, func(ctx context.Context) error {
		created, err := h.userStore.Create(ctx, models.User{
			LoginID:      input.LoginID,
			Email:        input.Email,
			PasswordHash: hash,
			Profile: models.Profile{
				Role:        input.Role,
				DisplayName: input.DisplayName,
				ExternalID:  input.ExternalID,
				City:        input.City,
			},
		})
		if err != nil {
			return err
		}
		user = created
		return h.prefStore.CreateMany(ctx, user.ID, entries)
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateLoginID) {
			h.renderForm(w, r, input, "That login ID is already taken.")
			return
		}
		h.errLog.Log(r, "failed to register user", err)
		h.renderForm(w, r, input, "Something went wrong. Please try again.")
		return
	}

	h.sendWelcomeEmail(r, &user)

	token, err := auth.GenerateSessionToken()
	if err == nil {
		err = h.sessionMgr.CreateSession(w, r, user.ID, user.Profile.Role, token)
	}
	if err != nil {
		h.errLog.Log(r, "failed to create session after registration", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	notice := "welcome_visitor"
	if user.Profile.Role == models.RoleStudent {
		notice = "welcome_student"
	}
	http.Redirect(w, r, "/?notice="+notice, http.StatusSeeOther)
}

// preferenceEntries reads the facet checkbox/priority fields. Only active
// facets count; anything else in the form is skipped.
func (h *Handler) preferenceEntries(r *http.Request) ([]preferencestore.Entry, error) {
	active, err := h.facetStore.ListActive(r.Context())
	if err != nil {
		return nil, err
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
	return entries, nil
}

// sendWelcomeEmail is best effort: a mail failure never fails the
// registration.
func (h *Handler) sendWelcomeEmail(r *http.Request, user *models.User) {
	if h.mailer == nil {
		return
	}

	siteName := viewdata.GetSiteName(r.Context(), h.db)
	textBody, htmlBody := mailer.WelcomeEmail(mailer.WelcomeEmailData{
		SiteName: siteName,
		UserName: user.Name(),
		Role:     user.Profile.Role,
		SiteURL:  h.baseURL,
	})
	err := h.mailer.Send(mailer.Email{
		To:       user.Email,
		Subject:  "Welcome to " + siteName,
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
	if err != nil {
		h.logger.Warn("failed to send welcome email",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, input RegisterInput, errMsg string) {
	vm := RegisterVM{
		Base:        formutil.NewBase(r, h.db, "Register", "/"),
		LoginID:     input.LoginID,
		Email:       input.Email,
		Role:        input.Role,
		DisplayName: input.DisplayName,
		ExternalID:  input.ExternalID,
		City:        input.City,
	}
	vm.Facets = h.facetOptions(r, r.Form)
	vm.SetError(errMsg)
	templates.Render(w, r, "register/form", vm)
}

// facetOptions builds the facet list for the form, echoing prior
// selections when re-rendering after a validation error.
func (h *Handler) facetOptions(r *http.Request, form map[string][]string) []facetOption {
	active, err := h.facetStore.ListActive(r.Context())
	if err != nil {
		h.logger.Warn("failed to list facets for registration form", zap.Error(err))
		return nil
	}

	opts := make([]facetOption, 0, len(active))
	for i, f := range active {
		hex := f.ID.Hex()
		opt := facetOption{
			ID:       hex,
			Title:    f.Title,
			Priority: i + 1,
		}
		if form != nil {
			if vals := form["facet_"+hex]; len(vals) > 0 && vals[0] != "" {
				opt.Checked = true
			}
			if vals := form["priority_"+hex]; len(vals) > 0 {
				if p, err := strconv.Atoi(vals[0]); err == nil {
					opt.Priority = p
				}
			}
		}
		opts = append(opts, opt)
	}
	return opts
}
