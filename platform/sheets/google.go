package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// GoogleStore implements ValueStore on the Google Sheets v4 API.
type GoogleStore struct {
	svc *sheetsapi.Service
}

// NewGoogleStore builds a store authenticated with a service-account
// credentials JSON blob.
func NewGoogleStore(ctx context.Context, credentialsJSON []byte) (*GoogleStore, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &GoogleStore{svc: svc}, nil
}

func (s *GoogleStore) Read(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a1Range, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *GoogleStore) Write(ctx context.Context, spreadsheetID, a1Range string, rows [][]string) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, a1Range, valueRange(rows)).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", a1Range, err)
	}
	return nil
}

func (s *GoogleStore) Clear(ctx context.Context, spreadsheetID, a1Range string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, a1Range, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", a1Range, err)
	}
	return nil
}

func (s *GoogleStore) Append(ctx context.Context, spreadsheetID, a1Range string, rows [][]string) error {
	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, a1Range, valueRange(rows)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", a1Range, err)
	}
	return nil
}

func valueRange(rows [][]string) *sheetsapi.ValueRange {
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		values = append(values, cells)
	}
	return &sheetsapi.ValueRange{Values: values}
}
