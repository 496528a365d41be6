// Package sheets is the Google Sheets record backend. Each logical table
// lives in its own spreadsheet, on the tab titled after the table; the first
// row of the tab holds the column headers.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/yungbote/waxal-backend/internal/data/records"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

// SpreadsheetVars maps each table to the variable that names its spreadsheet.
var SpreadsheetVars = map[records.Table]string{
	records.TableParticipant:   "participant-sheet",
	records.TablePrompt:        "prompt-sheet",
	records.TableResponse:      "response-sheet",
	records.TableTranscription: "transcription-sheet",
}

type Store struct {
	svc        *gsheets.Service
	docs       map[records.Table]string
	log        *logger.Logger
	newBackOff func() backoff.BackOff
}

func New(svc *gsheets.Service, docs map[records.Table]string, log *logger.Logger) *Store {
	d := make(map[records.Table]string, len(docs))
	for k, v := range docs {
		d[k] = strings.TrimSpace(v)
	}
	return &Store{
		svc:  svc,
		docs: d,
		log:  log.With("store", "SheetsRecordStore"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 8 * time.Second
			b.MaxElapsedTime = 45 * time.Second
			return backoff.WithMaxRetries(b, 5)
		},
	}
}

// NewWithOptions builds the Sheets service from client options (credentials
// file, endpoint, http client) and wraps it.
func NewWithOptions(ctx context.Context, docs map[records.Table]string, log *logger.Logger, opts ...option.ClientOption) (*Store, error) {
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, docs, log), nil
}

func (s *Store) GetRows(ctx context.Context, table records.Table) ([]records.Row, error) {
	doc, err := s.doc(table)
	if err != nil {
		return nil, err
	}
	vr, err := retry(ctx, s, func() (*gsheets.ValueRange, error) {
		return s.svc.Spreadsheets.Values.Get(doc, quoteTitle(string(table))).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("read %s sheet: %w", table, err)
	}
	if len(vr.Values) == 0 {
		return []records.Row{}, nil
	}
	header := cellsToStrings(vr.Values[0])
	out := make([]records.Row, 0, len(vr.Values)-1)
	for i, raw := range vr.Values[1:] {
		cells := cellsToStrings(raw)
		fields := make(map[string]string, len(header))
		for c, name := range header {
			if name == "" {
				continue
			}
			if c < len(cells) {
				fields[name] = cells[c]
			} else {
				fields[name] = ""
			}
		}
		out = append(out, &row{
			store:  s,
			table:  table,
			doc:    doc,
			number: i + 2,
			header: header,
			fields: fields,
		})
	}
	return out, nil
}

func (s *Store) AddRow(ctx context.Context, table records.Table, fields map[string]string) error {
	doc, err := s.doc(table)
	if err != nil {
		return err
	}
	title := quoteTitle(string(table))
	head, err := retry(ctx, s, func() (*gsheets.ValueRange, error) {
		return s.svc.Spreadsheets.Values.Get(doc, title+"!1:1").Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("read %s header: %w", table, err)
	}
	if len(head.Values) == 0 {
		return fmt.Errorf("%s sheet has no header row", table)
	}
	header := cellsToStrings(head.Values[0])
	s.warnUnknown(table, header, fields)

	body := &gsheets.ValueRange{Values: [][]interface{}{orderCells(header, fields)}}
	_, err = retry(ctx, s, func() (*gsheets.AppendValuesResponse, error) {
		return s.svc.Spreadsheets.Values.Append(doc, title, body).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
	})
	if err != nil {
		return fmt.Errorf("append %s row: %w", table, err)
	}
	return nil
}

func (s *Store) doc(table records.Table) (string, error) {
	if !records.ValidTable(table) {
		return "", fmt.Errorf("%w: %s", records.ErrUnknownTable, table)
	}
	doc := s.docs[table]
	if doc == "" {
		return "", fmt.Errorf("no spreadsheet configured for %s", table)
	}
	return doc, nil
}

func (s *Store) warnUnknown(table records.Table, header []string, fields map[string]string) {
	known := make(map[string]struct{}, len(header))
	for _, h := range header {
		known[h] = struct{}{}
	}
	for name := range fields {
		if _, ok := known[name]; !ok {
			s.log.Warn("Dropping field missing from sheet header", "table", string(table), "field", name)
		}
	}
}

type row struct {
	store  *Store
	table  records.Table
	doc    string
	number int // 1-based sheet row
	header []string
	fields map[string]string
}

func (r *row) Get(field string) string   { return r.fields[field] }
func (r *row) Set(field, value string)   { r.fields[field] = value }
func (r *row) Fields() map[string]string { return records.CopyFields(r.fields) }

func (r *row) Save(ctx context.Context) error {
	r.store.warnUnknown(r.table, r.header, r.fields)
	rng := quoteTitle(string(r.table)) + "!A" + strconv.Itoa(r.number)
	body := &gsheets.ValueRange{Values: [][]interface{}{orderCells(r.header, r.fields)}}
	_, err := retry(ctx, r.store, func() (*gsheets.UpdateValuesResponse, error) {
		return r.store.svc.Spreadsheets.Values.Update(r.doc, rng, body).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
	})
	if err != nil {
		return fmt.Errorf("save %s row %d: %w", r.table, r.number, err)
	}
	return nil
}

func retry[T any](ctx context.Context, s *Store, fn func() (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !isRetryable(err) {
			return v, backoff.Permanent(err)
		}
		s.log.Warn("Sheets call failed, retrying", "attempt", attempt, "error", err)
		return v, err
	}
	return backoff.RetryWithData(op, backoff.WithContext(s.newBackOff(), ctx))
}

func isRetryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return false
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(c))
	}
	return out
}

func orderCells(header []string, fields map[string]string) []interface{} {
	out := make([]interface{}, len(header))
	for i, h := range header {
		out[i] = fields[h]
	}
	return out
}
