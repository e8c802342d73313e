package budgetfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"finwise/internal/core"
)

func TestDecode(t *testing.T) {
	in := `
budgets:
  transport: 50.5
  " food ": "200"
`
	got, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Category != "food" || got[1].Category != "transport" {
		t.Fatalf("unexpected limits: %+v", got)
	}
	if !got[1].Limit.Equal(core.MustAmount("50.5")) {
		t.Fatalf("transport limit = %s", got[1].Limit)
	}
}

func TestDecodeRejectsBadLimits(t *testing.T) {
	in := `
budgets:
  food: 0
  fun: -3
  rent: lots
  ok: 10
`
	_, err := Decode(strings.NewReader(in))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, core.ErrInvalidLimit) || !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, c := range []string{"food", "fun", "rent"} {
		if !strings.Contains(err.Error(), c) {
			t.Errorf("error %q does not mention %s", err, c)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(strings.NewReader(""))
	if err != nil || len(got) != 0 {
		t.Fatalf("empty file: %v %v", got, err)
	}
	if _, err := Decode(strings.NewReader("budgets: [1, 2")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgets.yaml")
	limits := []core.CategoryLimit{
		{Category: "books", Limit: core.MustAmount("30")},
		{Category: "food", Limit: core.MustAmount("199.99")},
	}
	if err := Save(path, limits); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || !got[1].Limit.Equal(limits[1].Limit) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	var buf bytes.Buffer
	_ = Encode(&buf, limits)
	if !strings.HasPrefix(buf.String(), "budgets:\n  books:") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}
}
