// Package budgetfile reads and writes category limits as YAML:
//
//	budgets:
//	  food: "200"
//	  transport: "50.5"
package budgetfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"finwise/internal/core"
)

type document struct {
	Budgets map[string]string `yaml:"budgets"`
}

// Decode parses and validates every limit. All problems are reported together.
func Decode(r io.Reader) ([]core.CategoryLimit, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse budget file: %w", err)
	}

	var (
		out  []core.CategoryLimit
		errs []error
	)
	for category, raw := range doc.Budgets {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", category, &core.ValidationError{Field: "limit", Err: core.ErrInvalidLimit}))
			continue
		}
		name, err := core.ValidateBudget(category, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", category, err))
			continue
		}
		out = append(out, core.CategoryLimit{Category: name, Limit: limit})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func Encode(w io.Writer, limits []core.CategoryLimit) error {
	doc := document{Budgets: make(map[string]string, len(limits))}
	for _, l := range limits {
		doc.Budgets[l.Category] = l.Limit.String()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode budget file: %w", err)
	}
	return enc.Close()
}

func Load(path string) ([]core.CategoryLimit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Save(path string, limits []core.CategoryLimit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, limits); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
