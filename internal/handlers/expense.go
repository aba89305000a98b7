package handlers

import (
	"net/http"

	"github.com/diewo77/cuentas-claras/httpx"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/internal/services"
)

// expenseDetail is the single-expense payload, with the resident nested.
type expenseDetail struct {
	*models.Expense
	Resident *models.UserSummary `json:"resident"`
}

func detailOfExpense(e *models.Expense) expenseDetail {
	return expenseDetail{Expense: e, Resident: e.Resident.Summary()}
}

type ExpenseHandler struct {
	ledger *services.ExpenseLedger
}

func NewExpenseHandler(ledger *services.ExpenseLedger) *ExpenseHandler {
	return &ExpenseHandler{ledger: ledger}
}

func (h *ExpenseHandler) list(w http.ResponseWriter, r *http.Request, status models.ExpenseStatus) {
	list, err := h.ledger.List(r.Context(), CallerFrom(r.Context()), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Expense{}
	}
	ok(w, list)
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ExpenseStatus(r.URL.Query().Get("status")))
}

func (h *ExpenseHandler) Pending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ExpenseStatusPending)
}

func (h *ExpenseHandler) Paid(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ExpenseStatusPaid)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	exp, err := h.ledger.Create(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detailOfExpense(exp))
}

func (h *ExpenseHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Statistics(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, stats)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		exp, err := h.ledger.Get(r.Context(), caller, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, detailOfExpense(exp))
	})(w, r)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		var in services.ExpenseInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		exp, err := h.ledger.Update(r.Context(), caller, id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, detailOfExpense(exp))
	})(w, r)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		if err := h.ledger.Delete(r.Context(), caller, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})(w, r)
}

func (h *ExpenseHandler) Pay(w http.ResponseWriter, r *http.Request) {
	withID(func(w http.ResponseWriter, r *http.Request, caller policy.Caller, id uint) {
		exp, err := h.ledger.Pay(r.Context(), caller, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, detailOfExpense(exp))
	})(w, r)
}
