package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/cuentas-claras/auth"
	"github.com/diewo77/cuentas-claras/httpx"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/services"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

type AuthHandler struct {
	users *services.Users
	clock clock.Clock
	ttl   time.Duration
}

func NewAuthHandler(users *services.Users, clk clock.Clock, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, clock: clk, ttl: ttl}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login checks the credentials and answers with a bearer token. It also
// sets the session cookie so browser clients work without the header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Username == "" || in.Password == "" {
		writeError(w, r, errors.Unauthorizedf("invalid credentials"))
		return
	}
	u, err := h.users.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := auth.IssueToken(u.ID, h.clock.Now(), h.ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.CreateSession(w, u.ID)
	logger.Infof("user %d logged in", u.ID)
	ok(w, tokenResponse{Token: token, User: u})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
