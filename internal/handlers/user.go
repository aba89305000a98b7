package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/cuentas-claras/httpx"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/internal/services"
)

type UserHandler struct {
	users *services.Users
}

func NewUserHandler(users *services.Users) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Register(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, h.users.List)
}

func (h *UserHandler) Residents(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, h.users.ListResidents)
}

func (h *UserHandler) respondList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, caller policy.Caller) ([]models.User, error)) {
	users, err := list(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	ok(w, users)
}

func (h *UserHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Statistics(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, stats)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	h.update(w, r, caller, caller.UserID)
}

// passwordChange is the payload of POST /api/users/me/password.
type passwordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordChange
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.ChangePassword(r.Context(), CallerFrom(r.Context()), in.OldPassword, in.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		u, err := h.users.Get(r.Context(), caller, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, u)
	})(w, r)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	withID(h.update)(w, r)
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
	var in services.UserUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Update(r.Context(), caller, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		if err := h.users.Delete(r.Context(), caller, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})(w, r)
}
