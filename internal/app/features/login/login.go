// internal/app/features/login/login.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"net/http"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/authutil"
	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides login handlers.
type Handler struct {
	userStore  *userstore.Store
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new login Handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:  userstore.New(db),
		sessionMgr: sessionMgr,
		errLog:     errLog,
		logger:     logger,
	}
}

// LoginVM is the view model for the login page.
type LoginVM struct {
	viewdata.BaseVM
	Error     string
	LoginID   string
	ReturnURL string
}

// Routes returns a chi.Router with login routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.showLogin)
	r.Post("/", h.handleLogin)
	return r
}

// showLogin displays the login form. Signed-in users are sent home.
func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		ReturnURL: query.Get(r, "return"),
	}
	vm.Title = "Login"

	templates.Render(w, r, "login/index", vm)
}

// handleLogin checks the credentials and establishes a session.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	loginID := strings.TrimSpace(r.FormValue("login_id"))
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	if loginID == "" || password == "" {
		h.renderLogin(w, r, loginID, returnURL, "Please enter your login ID and password.")
		return
	}

	user, err := h.userStore.GetByLoginID(r.Context(), loginID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			h.renderLogin(w, r, loginID, returnURL, "Invalid credentials.")
			return
		}
		h.errLog.Log(r, "database error during login lookup", err)
		h.renderLogin(w, r, loginID, returnURL, "Service temporarily unavailable. Please try again.")
		return
	}

	if user.Status == status.Disabled {
		h.renderLogin(w, r, loginID, returnURL, "Account is disabled.")
		return
	}

	if user.PasswordHash == "" || !authutil.CheckPassword(password, user.PasswordHash) {
		h.logger.Info("login failed", zap.String("login_id", loginID))
		h.renderLogin(w, r, loginID, returnURL, "Invalid credentials.")
		return
	}

	token, err := auth.GenerateSessionToken()
	if err == nil {
		err = h.sessionMgr.CreateSession(w, r, user.ID, user.Profile.Role, token)
	}
	if err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, loginID, returnURL, errMsg string) {
	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		Error:     errMsg,
		LoginID:   loginID,
		ReturnURL: returnURL,
	}
	vm.Title = "Login"
	templates.Render(w, r, "login/index", vm)
}
