// internal/app/features/staffmessages/staffmessages.go
package staffmessages

import (
	"net/http"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	messagestore "github.com/alquimista/website/internal/app/store/messages"
	"github.com/alquimista/website/internal/app/system/mailer"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the staff contact message inbox.
type Handler struct {
	db           *mongo.Database
	messageStore *messagestore.Store
	mailer       *mailer.Mailer
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new staff messages Handler. The mailer may be nil
// when outgoing mail is not configured; replies are then saved without
// being sent.
func NewHandler(
	db *mongo.Database,
	m *mailer.Mailer,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:           db,
		messageStore: messagestore.New(db),
		mailer:       m,
		errLog:       errLog,
		logger:       logger,
	}
}

// MountRoutes mounts message inbox routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Post("/{id}/read", h.toggleRead)
	r.Post("/{id}/reply", h.reply)
	r.Post("/{id}/delete", h.delete)
}

// messageRow is one message in the inbox list.
type messageRow struct {
	ID      string
	Name    string
	Email   string
	Excerpt string
	Read    bool
	Replied bool
	Created string
}

// ListVM is the view model for the message inbox.
type ListVM struct {
	viewdata.BaseVM
	Items   []messageRow
	Unread  int64
	Success string
}

// list displays all contact messages, newest first.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageStore.List(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list messages", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	unread, err := h.messageStore.CountUnread(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to count unread messages", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]messageRow, 0, len(messages))
	for _, m := range messages {
		rows = append(rows, messageRow{
			ID:      m.ID.Hex(),
			Name:    m.Name,
			Email:   m.Email,
			Excerpt: excerpt(m.Body, 120),
			Read:    m.Read,
			Replied: m.RepliedAt != nil,
			Created: m.CreatedAt.Format("Jan 2, 2006 3:04 PM"),
		})
	}

	vm := ListVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Messages", "/staff"),
		Items:  rows,
		Unread: unread,
	}
	switch r.URL.Query().Get("success") {
	case "deleted":
		vm.Success = "Message deleted."
	}

	templates.Render(w, r, "staffmessages/list", vm)
}

// DetailVM is the view model for a single message.
type DetailVM struct {
	viewdata.BaseVM
	ID        string
	Name      string
	Email     string
	Body      string
	Read      bool
	Reply     string
	RepliedAt string
	Created   string
	Success   string
	Error     string
}

// show displays one message with its reply form.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	msg, _ := h.lookup(w, r)
	if msg == nil {
		return
	}

	vm := h.detailVM(r, msg)
	switch r.URL.Query().Get("success") {
	case "replied":
		vm.Success = "Reply sent."
	case "saved":
		vm.Success = "Reply saved. Outgoing mail is not configured, so it was not emailed."
	case "read":
		vm.Success = "Message status updated."
	}

	templates.Render(w, r, "staffmessages/detail", vm)
}

// toggleRead flips the read flag on a message.
func (h *Handler) toggleRead(w http.ResponseWriter, r *http.Request) {
	msg, objID := h.lookup(w, r)
	if msg == nil {
		return
	}

	if err := h.messageStore.MarkRead(r.Context(), objID, !msg.Read); err != nil {
		h.errLog.Log(r, "failed to update message read flag", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/staff/messages/"+msg.ID.Hex()+"?success=read", http.StatusSeeOther)
}

// reply saves a reply on the message and emails it to the sender when
// mail is configured. A failed send keeps the saved reply.
func (h *Handler) reply(w http.ResponseWriter, r *http.Request) {
	msg, objID := h.lookup(w, r)
	if msg == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	reply := strings.TrimSpace(r.FormValue("reply"))
	if reply == "" {
		vm := h.detailVM(r, msg)
		vm.Error = "Reply cannot be empty."
		templates.Render(w, r, "staffmessages/detail", vm)
		return
	}

	if err := h.messageStore.SaveReply(r.Context(), objID, reply); err != nil {
		h.errLog.Log(r, "failed to save reply", err)
		vm := h.detailVM(r, msg)
		vm.Reply = reply
		vm.Error = "Failed to save the reply."
		templates.Render(w, r, "staffmessages/detail", vm)
		return
	}

	if h.mailer == nil {
		http.Redirect(w, r, "/staff/messages/"+msg.ID.Hex()+"?success=saved", http.StatusSeeOther)
		return
	}

	siteName := viewdata.GetSiteName(r.Context(), h.db)
	textBody, htmlBody := mailer.ContactReplyEmail(mailer.ContactReplyEmailData{
		SiteName:     siteName,
		Name:         msg.Name,
		OriginalBody: msg.Body,
		Reply:        reply,
	})
	err := h.mailer.Send(mailer.Email{
		To:       msg.Email,
		Subject:  "Re: your message to " + siteName,
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
	if err != nil {
		h.logger.Warn("failed to send reply email",
			zap.String("message_id", msg.ID.Hex()),
			zap.Error(err))
		http.Redirect(w, r, "/staff/messages/"+msg.ID.Hex()+"?success=saved", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/messages/"+msg.ID.Hex()+"?success=replied", http.StatusSeeOther)
}

// delete deletes a message.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	msg, objID := h.lookup(w, r)
	if msg == nil {
		return
	}

	if err := h.messageStore.Delete(r.Context(), objID); err != nil {
		h.errLog.Log(r, "failed to delete message", err)
		http.Redirect(w, r, "/staff/messages?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/staff/messages?success=deleted", http.StatusSeeOther)
}

func (h *Handler) detailVM(r *http.Request, msg *models.ContactMessage) DetailVM {
	vm := DetailVM{
		BaseVM:  viewdata.NewBaseVM(r, h.db, "Message from "+msg.Name, "/staff/messages"),
		ID:      msg.ID.Hex(),
		Name:    msg.Name,
		Email:   msg.Email,
		Body:    msg.Body,
		Read:    msg.Read,
		Reply:   msg.Reply,
		Created: msg.CreatedAt.Format("Jan 2, 2006 3:04 PM"),
	}
	if msg.RepliedAt != nil {
		vm.RepliedAt = msg.RepliedAt.Format("Jan 2, 2006 3:04 PM")
	}
	return vm
}

// lookup resolves the {id} route param. It writes a 404 and returns nil
// when the message does not exist.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.ContactMessage, primitive.ObjectID) {
	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}

	msg, err := h.messageStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}
	return msg, objID
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
