package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
)

const maxBodyBytes = 64 << 10

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// amountField accepts 12.5, "12.5" and "12,5".
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	*a = amountField(b)
	return nil
}

func (a amountField) parse() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// parseLimit is ParseAmount reported against the limit field.
func (a amountField) parseLimit() (decimal.Decimal, error) {
	d, err := a.parse()
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "limit", Err: core.ErrInvalidLimit}
	}
	return d, nil
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
