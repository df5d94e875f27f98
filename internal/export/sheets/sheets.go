// Package sheets writes invoices into a Google Spreadsheet, one tab per
// customer and period.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/omrishi123/tractortrack/internal/export"
	"github.com/omrishi123/tractortrack/internal/report"
)

// tab titles are limited to 100 characters by the Sheets API
const maxTitle = 100

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	timeout       time.Duration
	logger        *slog.Logger
}

// Credentials selects the service account key, inline JSON first.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// New authenticates with a service account and returns an exporter bound to
// spreadsheetID.
func New(ctx context.Context, spreadsheetID string, creds Credentials, timeout time.Duration, logger *slog.Logger) (*Exporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	raw, err := creds.load()
	if err != nil {
		return nil, err
	}
	gc, err := google.CredentialsFromJSON(ctx, raw, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	// token requests and API calls share the pooled transport
	base := newHTTPClientWithPooling()
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), gc.TokenSource)

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, timeout, logger), nil
}

// NewWithService wraps an existing client; tests point it at a fake server.
func NewWithService(svc *gsheet.Service, spreadsheetID string, timeout time.Duration, logger *slog.Logger) *Exporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, timeout: timeout, logger: logger}
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Export writes inv into its own tab, replacing whatever the tab held, and
// returns the A1 range that was written.
func (e *Exporter) Export(ctx context.Context, inv report.Invoice) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	title := TabTitle(inv)
	if err := e.ensureTab(ctx, title); err != nil {
		return "", err
	}

	quoted := quote(title)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear tab %s: %w", title, err)
	}

	layout := export.Table(inv)
	rows := make([][]any, len(layout.Rows))
	for i, r := range layout.Rows {
		rows[i] = r
		if len(r) == 0 {
			rows[i] = []any{""}
		}
	}
	rng := fmt.Sprintf("%s!A1", quoted)
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write invoice to %s: %w", title, err)
	}

	e.logger.InfoContext(ctx, "Exported invoice to sheet",
		"tab", title, "rows", len(rows), "updated_range", resp.UpdatedRange)
	return resp.UpdatedRange, nil
}

func (e *Exporter) ensureTab(ctx context.Context, title string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", title, err)
	}
	return nil
}

// TabTitle is the export title stripped of characters Sheets rejects.
func TabTitle(inv report.Invoice) string {
	t := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':':
			return '-'
		}
		return r
	}, export.Title(inv))
	if r := []rune(t); len(r) > maxTitle {
		t = string(r[:maxTitle])
	}
	return t
}

func quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
