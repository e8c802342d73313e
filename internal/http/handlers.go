package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/log"
)

type handlers struct {
	opts Options
}

type transactionResponse struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Kind        core.Kind       `json:"kind"`
	Timestamp   time.Time       `json:"timestamp"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		Kind:        t.Kind,
		Timestamp:   t.Timestamp,
	}
}

type budgetStatusResponse struct {
	Category     string          `json:"category"`
	Status       core.Status     `json:"status"`
	Limit        decimal.Decimal `json:"limit"`
	Spend        decimal.Decimal `json:"spend"`
	RunningTotal decimal.Decimal `json:"running_total"`
	Overage      decimal.Decimal `json:"overage"`
}

func newBudgetStatusResponse(s core.BudgetStatus) *budgetStatusResponse {
	return &budgetStatusResponse{
		Category:     s.Category,
		Status:       s.Status,
		Limit:        s.Limit,
		Spend:        s.Spend,
		RunningTotal: s.RunningTotal,
		Overage:      s.Overage,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	u, err := h.opts.Accounts.Register(r.Context(), sanitizeInput(req.Username), req.Password, sanitizeInput(req.Email))
	if err != nil {
		writeError(w, r, log.OpRegister, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}).Write(w)
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	token, u, err := h.opts.Accounts.Login(r.Context(), sanitizeInput(req.Username), req.Password)
	if err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"token":    token,
		"user_id":  u.ID,
		"username": u.Username,
	}).Write(w)
}
