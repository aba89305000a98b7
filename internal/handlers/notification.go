package handlers

import (
	"net/http"

	"github.com/diewo77/cuentas-claras/i18n"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/internal/services"
)

type notificationView struct {
	models.Notification
	RelativeTime string `json:"relative_time"`
}

type NotificationHandler struct {
	center *services.NotificationCenter
}

func NewNotificationHandler(center *services.NotificationCenter) *NotificationHandler {
	return &NotificationHandler{center: center}
}

func (h *NotificationHandler) view(r *http.Request, n *models.Notification) notificationView {
	return notificationView{Notification: *n, RelativeTime: h.center.Age(i18n.LangFrom(r.Context()), n)}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.center.List(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]notificationView, len(list))
	for i := range list {
		out[i] = h.view(r, &list[i])
	}
	ok(w, out)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.center.UnreadCount(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]int64{"count": n})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.center.MarkAllRead(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]int64{"updated": n})
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		n, err := h.center.Get(r.Context(), caller, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, h.view(r, n))
	})(w, r)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		n, err := h.center.MarkRead(r.Context(), caller, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, h.view(r, n))
	})(w, r)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		if err := h.center.Delete(r.Context(), caller, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})(w, r)
}
