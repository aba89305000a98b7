package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/cuentas-claras/httpx"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/internal/services"
)

type fineDetail struct {
	*models.Fine
	Resident *models.UserSummary `json:"resident"`
}

func detailOfFine(f *models.Fine) fineDetail {
	return fineDetail{Fine: f, Resident: f.Resident.Summary()}
}

type FineHandler struct {
	ledger *services.FineLedger
}

func NewFineHandler(ledger *services.FineLedger) *FineHandler {
	return &FineHandler{ledger: ledger}
}

func (h *FineHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.List(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Fine{}
	}
	ok(w, list)
}

func (h *FineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.FineInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	fine, err := h.ledger.Create(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detailOfFine(fine))
}

func (h *FineHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Statistics(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, stats)
}

func (h *FineHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.transition(h.ledger.Get)(w, r)
}

func (h *FineHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.transition(h.ledger.Pay)(w, r)
}

func (h *FineHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.transition(h.ledger.Void)(w, r)
}

// transition serves a by-id operation that answers with the fine detail.
func (h *FineHandler) transition(op func(ctx context.Context, caller policy.Caller, id uint) (*models.Fine, error)) http.HandlerFunc {
	return withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		fine, err := op(r.Context(), caller, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, detailOfFine(fine))
	})
}

func (h *FineHandler) Update(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		var in services.FineInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		fine, err := h.ledger.Update(r.Context(), caller, id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, detailOfFine(fine))
	})(w, r)
}

func (h *FineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		if err := h.ledger.Delete(r.Context(), caller, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})(w, r)
}
