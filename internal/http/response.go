package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finwise/internal/auth"
	"finwise/internal/core"
	"finwise/internal/log"
	"finwise/internal/ports"
	"finwise/internal/services"
)

// JSONResponse builds a JSON reply.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponse {
	return &JSONResponse{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

func (b *JSONResponse) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error reply.
func ErrorResponse(statusCode int, message string) *JSONResponse {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// writeError maps err to a status code. Unexpected errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		NewJSONResponse().Status(http.StatusUnprocessableEntity).
			Body(errorBody{Error: ve.Err.Error(), Field: ve.Field}).Write(w)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		ErrorResponse(http.StatusUnauthorized, err.Error()).Write(w)
	case errors.Is(err, ports.ErrConflict):
		ErrorResponse(http.StatusConflict, "username or email already registered").Write(w)
	case errors.Is(err, ports.ErrNotFound):
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ErrorTypeInternal, op, nil)
		ErrorResponse(http.StatusInternalServerError, "internal error").Write(w)
	}
}
