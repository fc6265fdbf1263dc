// internal/app/features/contact/contact.go
package contact

import (
	"net/http"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	messagestore "github.com/alquimista/website/internal/app/store/messages"
	"github.com/alquimista/website/internal/app/store/ratelimit"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/alquimista/website/internal/app/system/inputval"
	"github.com/alquimista/website/internal/app/system/network"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the contact form.
type Handler struct {
	db           *mongo.Database
	messageStore *messagestore.Store
	rateLimit    *ratelimit.Store
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new contact Handler.
func NewHandler(
	db *mongo.Database,
	rateLimit *ratelimit.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:           db,
		messageStore: messagestore.New(db),
		rateLimit:    rateLimit,
		errLog:       errLog,
		logger:       logger,
	}
}

// ContactInput holds the contact form fields.
type ContactInput struct {
	Name    string `validate:"required,min=2,max=200" label:"Name"`
	Email   string `validate:"required,contains=@,max=254" label:"Email"`
	Message string `validate:"required,min=10,max=5000" label:"Message"`
}

// ContactVM is the view model for the contact form.
type ContactVM struct {
	formutil.Base
	Name    string
	Email   string
	Message string
}

// Routes returns a chi.Router with contact routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Post("/", h.submit)
	return r
}

// show displays the contact form.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	vm := ContactVM{
		Base: formutil.NewBase(r, h.db, "Contact", "/"),
	}
	templates.Render(w, r, "contact/form", vm)
}

// submit validates and records a contact message. The per-IP counter is
// bumped before anything is persisted; a submission over the cap leaves
// no message behind, and a save failure refunds the consumed slot.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	input := ContactInput{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}

	if result := inputval.Validate(input); result.HasErrors() {
		h.renderForm(w, r, input, result.First())
		return
	}

	// A nil rate limit store means the cap is disabled.
	counted := false
	ip := network.GetClientIP(r)
	if h.rateLimit != nil {
		allowed, count, err := h.rateLimit.Allow(r.Context(), ip)
		if err != nil {
			h.errLog.Log(r, "contact rate limit check failed", err)
			h.renderForm(w, r, input, "Something went wrong. Please try again.")
			return
		}
		if !allowed {
			h.logger.Warn("contact message rejected by rate limit",
				zap.String("ip", ip), zap.Int("count", count))
			h.renderForm(w, r, input, "You have sent too many messages recently. Please try again later.")
			return
		}
		counted = true
	}

	if _, err := h.messageStore.Create(r.Context(), messagestore.CreateInput{
		Name:  input.Name,
		Email: input.Email,
		Body:  input.Message,
	}); err != nil {
		h.errLog.Log(r, "failed to save contact message", err)
		// The cap counts accepted messages; give the slot back
		if counted {
			if rerr := h.rateLimit.Refund(r.Context(), ip); rerr != nil {
				h.logger.Warn("failed to refund rate limit slot",
					zap.String("ip", ip), zap.Error(rerr))
			}
		}
		h.renderForm(w, r, input, "Something went wrong. Please try again.")
		return
	}

	http.Redirect(w, r, "/?notice=message_sent", http.StatusSeeOther)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, input ContactInput, errMsg string) {
	vm := ContactVM{
		Base:    formutil.NewBase(r, h.db, "Contact", "/"),
		Name:    input.Name,
		Email:   input.Email,
		Message: input.Message,
	}
	vm.SetError(errMsg)
	templates.Render(w, r, "contact/form", vm)
}
