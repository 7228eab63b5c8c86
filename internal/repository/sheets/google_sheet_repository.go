package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/stockwatch/internal/config"
	"github.com/mamadbah2/stockwatch/internal/domain/models"
)

const (
	alertsRange    = "Alerts!A:F"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// appender is the part of the Sheets API this package needs.
type appender interface {
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// AlertArchive records every delivered low-stock email as spreadsheet rows.
type AlertArchive struct {
	sheet  appender
	loc    *time.Location
	logger *zap.Logger
}

// NewAlertArchive builds a Google Sheets backed archive. Timestamps are
// written in loc.
func NewAlertArchive(ctx context.Context, cfg config.SheetsConfig, loc *time.Location, logger *zap.Logger) (*AlertArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return newAlertArchive(&googleSheet{service: service, spreadsheetID: cfg.SpreadsheetID}, loc, logger), nil
}

func newAlertArchive(sheet appender, loc *time.Location, logger *zap.Logger) *AlertArchive {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertArchive{sheet: sheet, loc: loc, logger: logger}
}

// RecordAlert appends one row per item for an email sent on channel at sentAt.
func (a *AlertArchive) RecordAlert(ctx context.Context, channel string, sentAt time.Time, items []models.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}

	stamp := sentAt.In(a.loc).Format(dateTimeLayout)
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		rows = append(rows, []interface{}{stamp, channel, item.ID, item.Name, item.Quantity, item.MinimumQuantity})
	}

	if err := a.sheet.AppendRows(ctx, alertsRange, rows); err != nil {
		return err
	}

	a.logger.Debug("alert archived", zap.String("channel", channel), zap.Int("rows", len(rows)))
	return nil
}

type googleSheet struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

// AppendRows appends the provided values to the supplied sheet range.
func (g *googleSheet) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: rows}

	call := g.service.Spreadsheets.Values.Append(g.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}
	return nil
}
