package export

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/hackhub/backend/internal/models"
)

// SheetRegistrations is the tab registrations are appended to.
const SheetRegistrations = "Registrations"

// Sheets appends registrations to a Google spreadsheet.
type Sheets struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewSheets builds a Sheets client from a service account JSON file.
func NewSheets(ctx context.Context, serviceAccountJSONPath, spreadsheetID string, logger *zap.Logger) (*Sheets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Sheets{srv: srv, spreadsheetID: spreadsheetID, logger: logger}, nil
}

// SpreadsheetID returns the target spreadsheet.
func (s *Sheets) SpreadsheetID() string { return s.spreadsheetID }

// AppendRegistrations appends one row per registration and returns the updated range.
func (s *Sheets) AppendRegistrations(ctx context.Context, regs []models.Registration) (string, error) {
	vr := &sheetsv4.ValueRange{Values: Values(regs)}
	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, SheetRegistrations+"!A:G", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append rows: %w", err)
	}
	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	s.logger.Info("registrations exported to sheets", zap.Int("rows", len(regs)), zap.String("range", updated))
	return updated, nil
}

// Values converts registrations into the Sheets value grid, header first.
func Values(regs []models.Registration) [][]interface{} {
	out := make([][]interface{}, 0, len(regs)+1)
	out = append(out, toCells(Header))
	for _, reg := range regs {
		out = append(out, toCells(Row(reg)))
	}
	return out
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
