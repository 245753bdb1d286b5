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

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

const dateLayout = "2006-01-02"

var header = []any{"ID", "Date", "Title", "Category", "Amount"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *slog.Logger
}

// Ensure interface conformance
var (
	_ ports.TransactionWriter = (*Client)(nil)
	_ ports.TransactionLister = (*Client)(nil)
)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials: inline JSON wins over the file path.
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service; tests point it at a fake endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.With(log.FieldComponent, log.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// ids reads column A; index i of the result is sheet row i+1.
func (c *Client) ids(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

// findRow returns the 1-based row holding id, or 0.
func findRow(ids []string, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, v := range ids {
		if v == want {
			return i + 1
		}
	}
	return 0
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:E%d", c.sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, r ports.Row) (string, error) {
	if r.TransactionID <= 0 {
		return "", fmt.Errorf("%w: row has no transaction id", core.ErrValidation)
	}
	ids, err := c.ids(ctx)
	if err != nil {
		return "", err
	}

	row := findRow(ids, r.TransactionID)
	if row == 0 {
		if len(ids) == 0 {
			if err := c.writeRow(ctx, 1, header); err != nil {
				return "", err
			}
			ids = append(ids, "ID")
		}
		row = len(ids) + 1
	}

	values := []any{
		r.TransactionID,
		r.Date.Format(dateLayout),
		r.Title,
		r.Category,
		r.Amount.String(),
	}
	if err := c.writeRow(ctx, row, values); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s!A%d:E%d", c.sheet, row, row)
	c.logger.DebugContext(ctx, "Row written", log.FieldTransactionID, r.TransactionID, "ref", ref)
	return ref, nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheet)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	ids, err := c.ids(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		c.logger.DebugContext(ctx, "Row already absent", log.FieldTransactionID, id)
		return nil
	}
	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

// ListRows reads every exported row, skipping the header and malformed rows.
func (c *Client) ListRows(ctx context.Context) ([]ports.Row, error) {
	rng := fmt.Sprintf("%s!A:E", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []ports.Row
	for _, raw := range resp.Values {
		cols := toStrings(raw)
		if len(cols) < 5 {
			continue
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil {
			continue
		}
		date, err := time.Parse(dateLayout, cols[1])
		if err != nil {
			continue
		}
		cents, ok := parseSignedCents(cols[4])
		if !ok {
			continue
		}
		out = append(out, ports.Row{
			TransactionID: id,
			Date:          date,
			Title:         cols[2],
			Category:      cols[3],
			Amount:        core.Money{Cents: cents},
		})
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func parseSignedCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(s, "-"))
	if err != nil {
		return 0, false
	}
	if neg {
		cents = -cents
	}
	return cents, true
}
