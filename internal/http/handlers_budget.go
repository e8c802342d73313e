package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"finwise/internal/budgetfile"
	"finwise/internal/core"
	"finwise/internal/log"
)

type budgetResponse struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

type setBudgetRequest struct {
	Limit amountField `json:"limit"`
}

// categoryParam returns the unescaped and trimmed {category} path segment.
func categoryParam(r *http.Request) string {
	c := chi.URLParam(r, "category")
	if u, err := url.PathUnescape(c); err == nil {
		c = u
	}
	return strings.TrimSpace(c)
}

func (h *handlers) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	limits, err := h.opts.Budgets.List(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]budgetResponse, len(limits))
	for i, l := range limits {
		out[i] = budgetResponse{Category: l.Category, Limit: l.Limit}
	}
	NewJSONResponse().Body(map[string]any{"budgets": out}).Write(w)
}

func (h *handlers) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	limit, err := req.Limit.parseLimit()
	if err != nil {
		writeError(w, r, log.OpSetLimit, err)
		return
	}
	saved, err := h.opts.Budgets.Set(r.Context(), currentUser(r.Context()).id, sanitizeInput(categoryParam(r)), limit)
	if err != nil {
		writeError(w, r, log.OpSetLimit, err)
		return
	}
	NewJSONResponse().Body(budgetResponse{Category: saved.Category, Limit: saved.Limit}).Write(w)
}

func (h *handlers) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)
	limit, ok, err := h.opts.Budgets.Get(r.Context(), currentUser(r.Context()).id, category)
	if err != nil {
		writeError(w, r, log.OpCheck, err)
		return
	}
	if !ok {
		ErrorResponse(http.StatusNotFound, "no budget for category").Write(w)
		return
	}
	NewJSONResponse().Body(budgetResponse{Category: category, Limit: limit}).Write(w)
}

func (h *handlers) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.opts.Ledger.Status(r.Context(), currentUser(r.Context()).id, categoryParam(r))
	if err != nil {
		writeError(w, r, log.OpCheck, err)
		return
	}
	NewJSONResponse().Body(newBudgetStatusResponse(status)).Write(w)
}

// handleImportBudgets takes a YAML budget file as the request body.
func (h *handlers) handleImportBudgets(w http.ResponseWriter, r *http.Request) {
	limits, err := budgetfile.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil && !core.IsValidation(err) {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	n, err := h.opts.Budgets.Import(r.Context(), currentUser(r.Context()).id, limits)
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	NewJSONResponse().Body(map[string]int{"imported": n}).Write(w)
}
