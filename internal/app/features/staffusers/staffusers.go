// internal/app/features/staffusers/staffusers.go
package staffusers

import (
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/authutil"
	"github.com/alquimista/website/internal/app/system/formutil"
	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the staff user panel.
type Handler struct {
	db        *mongo.Database
	userStore *userstore.Store
	prefStore *preferencestore.Store
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

// NewHandler creates a new staff user Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		db:        db,
		userStore: userstore.New(db),
		prefStore: preferencestore.New(db),
		errLog:    errLog,
		logger:    logger,
	}
}

// MountRoutes mounts user panel routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/delete", h.delete)
}

// userRow is one user in the panel list.
type userRow struct {
	ID        string
	LoginID   string
	Email     string
	Name      string
	Role      string
	Staff     bool
	Superuser bool
	Disabled  bool
	IsSelf    bool
}

// ListVM is the view model for the user list.
type ListVM struct {
	viewdata.BaseVM
	Items   []userRow
	Success string
}

// list displays all users.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.ListAll(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list users", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	current, _ := auth.CurrentUser(r)

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:        u.ID.Hex(),
			LoginID:   u.LoginID,
			Email:     u.Email,
			Name:      u.Name(),
			Role:      u.Profile.Role,
			Staff:     u.Staff,
			Superuser: u.Superuser,
			Disabled:  u.Status == status.Disabled,
			IsSelf:    current != nil && current.ID == u.ID.Hex(),
		})
	}

	vm := ListVM{
		BaseVM: viewdata.NewBaseVM(r, h.db, "Users", "/staff"),
		Items:  rows,
	}
	switch r.URL.Query().Get("success") {
	case "created":
		vm.Success = "User created."
	case "updated":
		vm.Success = "User updated."
	case "deleted":
		vm.Success = "User deleted."
	}

	templates.Render(w, r, "staffusers/list", vm)
}

// FormVM is the view model for the user create/edit form.
type FormVM struct {
	formutil.Base
	ID          string
	LoginID     string
	Email       string
	DisplayName string
	ExternalID  string
	City        string
	Role        string
	Roles       []string
	Staff       bool
	Superuser   bool
	Disabled    bool
	// CanGrantSuperuser is true when the acting user may change the
	// superuser flag. The field is hidden otherwise.
	CanGrantSuperuser bool
	IsEdit            bool
}

// showNew displays the new user form.
func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.CurrentUser(r)

	vm := FormVM{
		Base:              formutil.NewBase(r, h.db, "New User", "/staff/users"),
		Role:              models.RoleVisitor,
		Roles:             models.AllRoles(),
		CanGrantSuperuser: current != nil && current.Superuser,
	}
	templates.Render(w, r, "staffusers/form", vm)
}

// userForm reads the shared create/edit form fields.
type userForm struct {
	LoginID     string
	Email       string
	Password    string
	DisplayName string
	ExternalID  string
	City        string
	Role        string
	Staff       bool
	Superuser   bool
	Disabled    bool
}

func parseUserForm(r *http.Request) userForm {
	return userForm{
		LoginID:     strings.TrimSpace(r.FormValue("login_id")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		DisplayName: strings.TrimSpace(r.FormValue("display_name")),
		ExternalID:  strings.TrimSpace(r.FormValue("external_id")),
		City:        strings.TrimSpace(r.FormValue("city")),
		Role:        strings.TrimSpace(r.FormValue("role")),
		Staff:       r.FormValue("staff") == "on",
		Superuser:   r.FormValue("superuser") == "on",
		Disabled:    r.FormValue("disabled") == "on",
	}
}

func (f userForm) validate() string {
	if len(f.LoginID) < 3 || len(f.LoginID) > 150 {
		return "Login ID must be between 3 and 150 characters."
	}
	if f.Email == "" || !strings.Contains(f.Email, "@") {
		return "A valid email address is required."
	}
	if !models.IsValidRole(f.Role) {
		return "Choose a valid role."
	}
	return ""
}

// create creates a new user account.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	current, _ := auth.CurrentUser(r)
	form := parseUserForm(r)
	if current == nil || !current.Superuser {
		form.Superuser = false
	}

	if msg := form.validate(); msg != "" {
		h.renderForm(w, r, "", form, current, msg)
		return
	}
	if err := authutil.ValidatePassword(form.Password); err != nil {
		h.renderForm(w, r, "", form, current, err.Error())
		return
	}

	hash, err := authutil.HashPassword(form.Password)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		h.renderForm(w, r, "", form, current, "Failed to create the user.")
		return
	}

	userStatus := status.Active
	if form.Disabled {
		userStatus = status.Disabled
	}

	_, err = h.userStore.Create(r.Context(), models.User{
		LoginID:      form.LoginID,
		Email:        form.Email,
		PasswordHash: hash,
		Staff:        form.Staff,
		Superuser:    form.Superuser,
		Status:       userStatus,
		Profile: models.Profile{
			Role:        form.Role,
			DisplayName: form.DisplayName,
			ExternalID:  form.ExternalID,
			City:        form.City,
		},
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateLoginID) {
			h.renderForm(w, r, "", form, current, "That login ID is already taken.")
			return
		}
		h.errLog.Log(r, "failed to create user", err)
		h.renderForm(w, r, "", form, current, "Failed to create the user.")
		return
	}

	http.Redirect(w, r, "/staff/users?success=created", http.StatusSeeOther)
}

// showEdit displays the edit user form.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	user, _ := h.lookup(w, r)
	if user == nil {
		return
	}

	current, _ := auth.CurrentUser(r)
	form := userForm{
		LoginID:     user.LoginID,
		Email:       user.Email,
		DisplayName: user.Profile.DisplayName,
		ExternalID:  user.Profile.ExternalID,
		City:        user.Profile.City,
		Role:        user.Profile.Role,
		Staff:       user.Staff,
		Superuser:   user.Superuser,
		Disabled:    user.Status == status.Disabled,
	}
	h.renderEditForm(w, r, user.ID.Hex(), form, current, "")
}

// update updates a user account. The superuser flag is applied only when
// the acting user is a superuser; other staff's changes to it are ignored.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	user, objID := h.lookup(w, r)
	if user == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	current, _ := auth.CurrentUser(r)
	form := parseUserForm(r)
	id := user.ID.Hex()

	if msg := form.validate(); msg != "" {
		h.renderEditForm(w, r, id, form, current, msg)
		return
	}

	userStatus := status.Active
	if form.Disabled {
		userStatus = status.Disabled
	}

	input := userstore.UpdateInput{
		LoginID:     &form.LoginID,
		Email:       &form.Email,
		DisplayName: &form.DisplayName,
		ExternalID:  &form.ExternalID,
		City:        &form.City,
		Role:        &form.Role,
		Status:      &userStatus,
		Staff:       &form.Staff,
	}
	if current != nil && current.Superuser {
		input.Superuser = &form.Superuser
	}

	if form.Password != "" {
		if err := authutil.ValidatePassword(form.Password); err != nil {
			h.renderEditForm(w, r, id, form, current, err.Error())
			return
		}
		hash, err := authutil.HashPassword(form.Password)
		if err != nil {
			h.errLog.Log(r, "failed to hash password", err)
			h.renderEditForm(w, r, id, form, current, "Failed to update the user.")
			return
		}
		input.PasswordHash = &hash
	}

	if err := h.userStore.UpdateFromInput(r.Context(), objID, input); err != nil {
		if errors.Is(err, userstore.ErrDuplicateLoginID) {
			h.renderEditForm(w, r, id, form, current, "That login ID is already taken.")
			return
		}
		h.errLog.Log(r, "failed to update user", err)
		h.renderEditForm(w, r, id, form, current, "Failed to update the user.")
		return
	}

	http.Redirect(w, r, "/staff/users?success=updated", http.StatusSeeOther)
}

// delete deletes a user and their facet preferences. Staff cannot delete
// their own account.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	user, objID := h.lookup(w, r)
	if user == nil {
		return
	}

	current, ok := auth.CurrentUser(r)
	if ok && current.UserID() == objID {
		http.Redirect(w, r, "/staff/users?error=self_delete", http.StatusSeeOther)
		return
	}

	if _, err := h.userStore.Delete(r.Context(), objID); err != nil {
		h.errLog.Log(r, "failed to delete user", err)
		http.Redirect(w, r, "/staff/users?error=delete_failed", http.StatusSeeOther)
		return
	}

	if err := h.prefStore.DeleteByUser(r.Context(), objID); err != nil {
		h.logger.Warn("failed to delete preferences of removed user",
			zap.String("user_id", objID.Hex()), zap.Error(err))
	}

	http.Redirect(w, r, "/staff/users?success=deleted", http.StatusSeeOther)
}

// lookup resolves the {id} route param. It writes a 404 and returns nil
// when the user does not exist.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.User, primitive.ObjectID) {
	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}

	user, err := h.userStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return nil, primitive.NilObjectID
	}
	return user, objID
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, form userForm, current *auth.SessionUser, errMsg string) {
	vm := FormVM{
		Base:              formutil.NewBase(r, h.db, "New User", "/staff/users"),
		ID:                id,
		LoginID:           form.LoginID,
		Email:             form.Email,
		DisplayName:       form.DisplayName,
		ExternalID:        form.ExternalID,
		City:              form.City,
		Role:              form.Role,
		Roles:             models.AllRoles(),
		Staff:             form.Staff,
		Superuser:         form.Superuser,
		Disabled:          form.Disabled,
		CanGrantSuperuser: current != nil && current.Superuser,
	}
	vm.SetError(errMsg)
	templates.Render(w, r, "staffusers/form", vm)
}

func (h *Handler) renderEditForm(w http.ResponseWriter, r *http.Request, id string, form userForm, current *auth.SessionUser, errMsg string) {
	vm := FormVM{
		Base:              formutil.NewBase(r, h.db, "Edit User", "/staff/users"),
		ID:                id,
		LoginID:           form.LoginID,
		Email:             form.Email,
		DisplayName:       form.DisplayName,
		ExternalID:        form.ExternalID,
		City:              form.City,
		Role:              form.Role,
		Roles:             models.AllRoles(),
		Staff:             form.Staff,
		Superuser:         form.Superuser,
		Disabled:          form.Disabled,
		CanGrantSuperuser: current != nil && current.Superuser,
		IsEdit:            true,
	}
	vm.SetError(errMsg)
	templates.Render(w, r, "staffusers/form", vm)
}
