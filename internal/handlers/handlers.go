// Package handlers exposes the services as a JSON REST API.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/diewo77/cuentas-claras/auth"
	"github.com/diewo77/cuentas-claras/httpx"
	"github.com/diewo77/cuentas-claras/i18n"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/internal/services"
	"github.com/diewo77/cuentas-claras/validation"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("cuentasclaras.http")

type callerKey struct{}

// WithCaller stores the resolved caller in ctx.
func WithCaller(ctx context.Context, c policy.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored by RequireCaller.
func CallerFrom(ctx context.Context) policy.Caller {
	c, _ := ctx.Value(callerKey{}).(policy.Caller)
	return c
}

// CallerResolver maps an authenticated user id to its current caller.
type CallerResolver interface {
	Caller(ctx context.Context, userID uint) (policy.Caller, error)
}

// RequireCaller resolves the authenticated user's current role on every
// request. It must run after auth.Middleware. Credentials of a deleted
// user are answered with 401 and the session cookie is cleared.
func RequireCaller(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, _ := auth.UserIDFromContext(r.Context())
			caller, err := resolver.Caller(r.Context(), uid)
			if err != nil {
				if errors.Is(err, errors.Unauthorized) {
					auth.ClearSession(w)
				}
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		}))
	}
}

// writeError maps the error taxonomy onto HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.LangFrom(r.Context())
	switch {
	case errors.Is(err, errors.NotValid):
		v, ok := validation.ViolationsOf(err)
		if !ok {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", i18n.T(lang, "malformed_body"), nil)
			return
		}
		details := make(map[string]string, len(v))
		for field, code := range v {
			details[field] = i18n.T(lang, code)
		}
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error(), details)
	case errors.Is(err, errors.Unauthorized):
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, errors.Forbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, errors.NotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidState):
		httpx.JSONError(w, http.StatusConflict, "invalid_state", err.Error(), nil)
	default:
		logger.Errorf("%s %s: %s", r.Method, r.URL.Path, errors.ErrorStack(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uint, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NotFoundf("%q", raw)
	}
	return uint(id), nil
}

// withID adapts a by-id operation into a handler.
func withID(fn func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		fn(w, r, CallerFrom(r.Context()), id)
	}
}

func ok(w http.ResponseWriter, payload any) {
	httpx.JSON(w, http.StatusOK, payload)
}
