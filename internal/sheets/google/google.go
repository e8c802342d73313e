// Package google mirrors ledger events into a Google Sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finwise/internal/amqp"
)

// Header is written to row 1 of an empty mirror sheet. The first five
// columns follow the CSV export.
var Header = []any{"Date", "Type", "Amount", "Category", "Description", "User", "Message"}

const (
	categoryColumn    = 3
	descriptionColumn = 4
	userColumn        = 5
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	dateFormat    string
}

// Credentials returns the service account JSON, preferring the inline value
// over the file.
func Credentials(inlineJSON, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		return []byte(inlineJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func New(ctx context.Context, spreadsheetID, sheetName, dateFormat string, credentialsJSON []byte) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Transactions"
	}
	if dateFormat == "" {
		dateFormat = time.DateTime
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets mirror ready", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, dateFormat: dateFormat}, nil
}

func (c *Client) fullRange() string {
	return fmt.Sprintf("%s!A:G", c.sheetName)
}

// AppendTransaction adds one row for a recorded transaction.
func (c *Client) AppendTransaction(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("%s!A1:A1", c.sheetName)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	rows := [][]any{transactionRow(msg, c.dateFormat)}
	if len(resp.Values) == 0 {
		rows = append([][]any{Header}, rows...)
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.fullRange(), &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	return nil
}

// ClearLedger removes every row belonging to the user and rewrites the rest.
func (c *Client) ClearLedger(ctx context.Context, msg *amqp.LedgerClearedMessage) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.fullRange()).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", c.sheetName, err)
	}
	kept, removed := withoutUser(resp.Values, msg.UserID)
	if removed == 0 {
		return nil
	}
	// Values come back rendered, so the quote prefix is gone and has to be
	// reapplied before the USER_ENTERED rewrite.
	for _, row := range kept[1:] {
		quoteUserText(row)
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.fullRange(), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", c.sheetName, err)
	}
	if len(kept) == 0 {
		return nil
	}
	rng := fmt.Sprintf("%s!A1:G%d", c.sheetName, len(kept))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: kept}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("rewrite %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Removed mirrored rows", "user_id", msg.UserID, "rows", removed)
	return nil
}

func transactionRow(msg *amqp.TransactionRecordedMessage, dateFormat string) []any {
	return []any{
		msg.Timestamp.Format(dateFormat),
		msg.Kind,
		msg.Amount.StringFixed(2),
		plainText(msg.Category),
		plainText(msg.Description),
		strconv.FormatInt(msg.UserID, 10),
		msg.ID,
	}
}

// plainText keeps user supplied text from being parsed as a formula by a
// USER_ENTERED write. Sheets strips the leading quote on display.
func plainText(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

func quoteUserText(row []any) {
	for _, col := range []int{categoryColumn, descriptionColumn} {
		if col < len(row) {
			if s, ok := row[col].(string); ok {
				row[col] = plainText(s)
			}
		}
	}
}

// withoutUser drops the rows whose user column equals userID. The header row
// is always kept.
func withoutUser(rows [][]any, userID int64) (kept [][]any, removed int) {
	want := strconv.FormatInt(userID, 10)
	for i, row := range rows {
		if i > 0 && len(row) > userColumn && fmt.Sprint(row[userColumn]) == want {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	return kept, removed
}
