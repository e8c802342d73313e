// Package prefs keeps the CLI's per-user preferences in a small JSON file.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultFile = "config.json"

	keyCurrency   = "CURRENCY_SYMBOL"
	keyDBFile     = "DB_FILE"
	keyDateFormat = "DATE_FORMAT"
)

type Prefs struct {
	CurrencySymbol string
	DBFile         string
	DateFormat     string // Go layout
}

func Defaults() Prefs {
	return Prefs{CurrencySymbol: "$", DBFile: "finance_tracker.db", DateFormat: "2006-01-02 15:04:05"}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	d := Defaults()
	v.SetDefault(keyCurrency, d.CurrencySymbol)
	v.SetDefault(keyDBFile, d.DBFile)
	v.SetDefault(keyDateFormat, d.DateFormat)
	return v
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Prefs, error) {
	if path == "" {
		path = DefaultFile
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Prefs{}, fmt.Errorf("read preferences %s: %w", path, err)
		}
	}
	return Prefs{
		CurrencySymbol: v.GetString(keyCurrency),
		DBFile:         v.GetString(keyDBFile),
		DateFormat:     v.GetString(keyDateFormat),
	}, nil
}

// Save writes every preference to path, creating the directory if needed.
func Save(path string, p Prefs) error {
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences dir: %w", err)
		}
	}
	v := newViper(path)
	v.Set(keyCurrency, p.CurrencySymbol)
	v.Set(keyDBFile, p.DBFile)
	v.Set(keyDateFormat, p.DateFormat)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	return nil
}

// SetCurrency updates only the currency symbol.
func SetCurrency(path, symbol string) (Prefs, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Prefs{}, errors.New("currency symbol must not be empty")
	}
	p, err := Load(path)
	if err != nil {
		return Prefs{}, err
	}
	p.CurrencySymbol = symbol
	return p, Save(path, p)
}
