// Package google stores the ledger in a Google Sheets tab: one header row
// followed by one row per expense in ledger order.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expenses/internal/core"
	"expenses/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the subset of the Sheets values service the store needs.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// Client implements ledger.Store against a spreadsheet tab.
type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheet         string
}

var _ ledger.Store = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceValues{svc: svc}, cfg), nil
}

func newClient(values valuesAPI, cfg Config) *Client {
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Expenses"
	}
	return &Client{values: values, spreadsheetID: cfg.SpreadsheetID, sheet: sheet}
}

// newSheetsService initializes a Sheets service from inline JSON or a
// credentials file, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		raw = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Load implements ledger.Store.
func (c *Client) Load(ctx context.Context) ([]core.Expense, error) {
	rng := fmt.Sprintf("%s!A2:E", c.sheet)
	rows, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	records, err := parseRows(rows)
	if err != nil {
		slog.ErrorContext(ctx, "Malformed ledger sheet", "sheet", c.sheet, "error", err)
		return nil, err
	}
	return records, nil
}

// Save implements ledger.Store by rewriting the whole tab.
func (c *Client) Save(ctx context.Context, records []core.Expense) error {
	if err := c.values.Clear(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:E", c.sheet)); err != nil {
		return fmt.Errorf("%w: clear sheet %s: %v", ledger.ErrPersist, c.sheet, err)
	}
	if err := c.values.Update(ctx, c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheet), encodeRows(records)); err != nil {
		return fmt.Errorf("%w: update sheet %s: %v", ledger.ErrPersist, c.sheet, err)
	}
	slog.DebugContext(ctx, "Ledger saved to Google Sheets", "sheet", c.sheet, "records", len(records))
	return nil
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Get(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Clear(ctx context.Context, id, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(id, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, id, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.Update(id, rng, vr).ValueInputOption("RAW").Context(ctx).Do()
	return err
}
