// internal/app/features/authgoogle/authgoogle.go
package authgoogle

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	"github.com/alquimista/website/internal/app/store/oauthstate"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler provides Google OAuth handlers.
type Handler struct {
	userStore       *userstore.Store
	sessionMgr      *auth.SessionManager
	errLog          *errorsfeature.ErrorLogger
	oauthStateStore *oauthstate.Store
	oauthConfig     *oauth2.Config
	logger          *zap.Logger
}

// NewHandler creates a new Google OAuth Handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	oauthStateStore *oauthstate.Store,
	clientID string,
	clientSecret string,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:       userstore.New(db),
		sessionMgr:      sessionMgr,
		errLog:          errLog,
		oauthStateStore: oauthStateStore,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// Routes returns a chi.Router with Google OAuth routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.startAuth)
	r.Get("/callback", h.handleCallback)
	return r
}

// startAuth initiates the Google OAuth flow.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.errLog.Log(r, "failed to generate state", err)
		http.Redirect(w, r, "/login?error=oauth_error", http.StatusSeeOther)
		return
	}

	if err := h.oauthStateStore.Create(r.Context(), state); err != nil {
		h.errLog.Log(r, "failed to store state", err)
		http.Redirect(w, r, "/login?error=oauth_error", http.StatusSeeOther)
		return
	}

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleCallback processes the Google OAuth callback. Unknown emails get a
// fresh visitor account; known emails sign in to their existing one.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if !h.oauthStateStore.Verify(r.Context(), state) {
		h.logger.Warn("invalid oauth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from google", zap.String("error", errMsg))
		http.Redirect(w, r, "/login?error=oauth_error", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		h.errLog.Log(r, "failed to exchange code", err)
		http.Redirect(w, r, "/login?error=token_exchange_failed", http.StatusSeeOther)
		return
	}

	userInfo, err := h.getUserInfo(r.Context(), token)
	if err != nil {
		h.errLog.Log(r, "failed to get user info", err)
		http.Redirect(w, r, "/login?error=userinfo_failed", http.StatusSeeOther)
		return
	}
	if userInfo.Email == "" {
		h.logger.Warn("google userinfo carried no email")
		http.Redirect(w, r, "/login?error=userinfo_failed", http.StatusSeeOther)
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), userInfo.Email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.errLog.Log(r, "failed to get user by email", err)
			http.Redirect(w, r, "/login?error=database_error", http.StatusSeeOther)
			return
		}
		user, err = h.createVisitor(r.Context(), userInfo)
		if err != nil {
			h.errLog.Log(r, "failed to create user from google sign-in", err)
			http.Redirect(w, r, "/login?error=oauth_error", http.StatusSeeOther)
			return
		}
		h.logger.Info("created visitor account from google sign-in",
			zap.String("user_id", user.ID.Hex()))
	}

	if user.Status == status.Disabled {
		h.logger.Info("google sign-in rejected for disabled account",
			zap.String("user_id", user.ID.Hex()))
		http.Redirect(w, r, "/login?error=account_disabled", http.StatusSeeOther)
		return
	}

	sessionToken, err := auth.GenerateSessionToken()
	if err == nil {
		err = h.sessionMgr.CreateSession(w, r, user.ID, user.Profile.Role, sessionToken)
	}
	if err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Redirect(w, r, "/login?error=session_error", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// createVisitor creates a visitor account for a first-time Google sign-in.
// The email doubles as the login id; no password is set.
func (h *Handler) createVisitor(ctx context.Context, info *GoogleUserInfo) (*models.User, error) {
	created, err := h.userStore.Create(ctx, models.User{
		LoginID: info.Email,
		Email:   info.Email,
		Profile: models.Profile{
			Role:        models.RoleVisitor,
			DisplayName: info.Name,
		},
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GoogleUserInfo represents user info from Google.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// getUserInfo fetches user info from Google.
func (h *Handler) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, token)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &userInfo, nil
}

// generateState generates a random state token.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
