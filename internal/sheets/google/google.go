package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/sheets"
)

const (
	// DefaultSheetName is the tab prefix used when none is configured.
	DefaultSheetName = "Transactions"
	maxTitleLen      = 100
	mirrorColumns    = "A:F"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu   sync.Mutex
	tabs map[string]bool
}

// Ensure interface conformance
var _ sheets.Mirror = (*Client)(nil)

// New creates a Sheets client with service account credentials taken from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Nop()
	}
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetBase, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = DefaultSheetName
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        logger.WithComponent(log.ComponentSheets),
		tabs:          make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// sheetTitle names the owner's tab "<base> - <owner>", dropping characters
// that sheet titles cannot contain.
func sheetTitle(base, owner string) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]*?/\:`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(owner))
	title := fmt.Sprintf("%s - %s", base, clean)
	for utf8.RuneCountInString(title) > maxTitleLen {
		_, size := utf8.DecodeLastRuneInString(title)
		title = title[:len(title)-size]
	}
	return title
}

// a1Range quotes title for use in an A1 range.
func a1Range(title, cols string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cols
}

// ensureTab creates the tab unless it is already known to exist.
func (c *Client) ensureTab(ctx context.Context, title string) error {
	c.mu.Lock()
	known := c.tabs[title]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			exists = true
			break
		}
	}
	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", title, err)
		}
		c.logger.InfoContext(ctx, "Created sheet", log.FieldSheet, title)
	}

	c.mu.Lock()
	c.tabs[title] = true
	c.mu.Unlock()
	return nil
}

// ReplaceTransactions clears the owner's tab and writes txs into it.
func (c *Client) ReplaceTransactions(ctx context.Context, owner string, txs []core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := sheetTitle(c.sheetBase, owner)
	if err := c.ensureTab(ctx, title); err != nil {
		return err
	}

	rng := a1Range(title, mirrorColumns)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		c.forget(title)
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: sheets.Rows(txs)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1Range(title, "A1"), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}

	c.logger.DebugContext(ctx, "Mirrored transactions",
		log.FieldOwner, owner,
		log.FieldSheet, title,
		log.FieldCount, len(txs))
	return nil
}

// ListTransactions reads the owner's tab back. Dates come back as serial
// numbers and amounts as plain numbers.
func (c *Client) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	title := sheetTitle(c.sheetBase, owner)
	if err := c.ensureTab(ctx, title); err != nil {
		return nil, err
	}
	rng := a1Range(title, mirrorColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		c.forget(title)
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return sheets.ParseRows(resp.Values), nil
}

// forget drops a cached tab so the next call checks the spreadsheet again.
func (c *Client) forget(title string) {
	c.mu.Lock()
	delete(c.tabs, title)
	c.mu.Unlock()
}
