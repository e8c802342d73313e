package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/export"
	"finwise/internal/log"
)

type recordRequest struct {
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Kind        string      `json:"kind"`
	Timestamp   *time.Time  `json:"timestamp,omitempty"`
}

type recordResponse struct {
	Transaction transactionResponse   `json:"transaction"`
	Budget      *budgetStatusResponse `json:"budget,omitempty"`
}

func (h *handlers) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	amount, err := req.Amount.parse()
	if err != nil {
		writeError(w, r, log.OpRecord, err)
		return
	}
	in := core.TransactionInput{
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Kind:        req.Kind,
	}
	if req.Timestamp != nil {
		in.Timestamp = req.Timestamp.UTC()
	}

	res, err := h.opts.Ledger.Record(r.Context(), currentUser(r.Context()).id, in)
	if err != nil {
		writeError(w, r, log.OpRecord, err)
		return
	}
	body := recordResponse{Transaction: newTransactionResponse(res.Transaction)}
	if res.Budget != nil {
		body.Budget = newBudgetStatusResponse(*res.Budget)
	}
	NewJSONResponse().Status(http.StatusCreated).Body(body).Write(w)
}

func (h *handlers) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.opts.Ledger.Transactions(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]transactionResponse, len(txns))
	for i, t := range txns {
		out[i] = newTransactionResponse(t)
	}
	NewJSONResponse().Body(map[string]any{"transactions": out}).Write(w)
}

func (h *handlers) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := h.opts.Ledger.Clear(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		writeError(w, r, log.OpClear, err)
		return
	}
	NewJSONResponse().Body(map[string]int64{"removed": n}).Write(w)
}

type categoryResponse struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

type reportResponse struct {
	TotalIncome   decimal.Decimal    `json:"total_income"`
	TotalExpenses decimal.Decimal    `json:"total_expenses"`
	NetSavings    decimal.Decimal    `json:"net_savings"`
	Categories    []categoryResponse `json:"categories"`
}

func (h *handlers) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.opts.Ledger.Report(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	cats := report.Categories()
	body := reportResponse{
		TotalIncome:   report.TotalIncome,
		TotalExpenses: report.TotalExpenses,
		NetSavings:    report.NetSavings,
		Categories:    make([]categoryResponse, len(cats)),
	}
	for i, c := range cats {
		body.Categories[i] = categoryResponse{Category: c.Name, Amount: c.Amount, Percentage: c.Percentage.Round(2)}
	}
	NewJSONResponse().Body(body).Write(w)
}

func (h *handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.opts.Ledger.Rows(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.DefaultFilename+`"`)
	if err := export.WriteCSV(w, rows, h.opts.Export); err != nil {
		// Headers are already out; all that is left is to log.
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport, log.FieldError, err)
	}
}
