// Package memstore is an in-process records.Store used for local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/waxal-backend/internal/data/records"
)

type Store struct {
	mu      sync.Mutex
	tables  map[records.Table][]map[string]string
	saveErr map[records.Table]error
	addErr  map[records.Table]error
	getErr  map[records.Table]error
}

func New() *Store {
	return &Store{
		tables:  map[records.Table][]map[string]string{},
		saveErr: map[records.Table]error{},
		addErr:  map[records.Table]error{},
		getErr:  map[records.Table]error{},
	}
}

// Seed appends rows without going through AddRow fault injection.
func (s *Store) Seed(table records.Table, rows ...map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], records.CopyFields(r))
	}
}

// Snapshot returns a copy of every stored row of table.
func (s *Store) Snapshot(table records.Table) []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, records.CopyFields(r))
	}
	return out
}

// FailSave makes every Save on table return err until cleared with nil.
func (s *Store) FailSave(table records.Table, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr[table] = err
}

func (s *Store) FailAdd(table records.Table, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addErr[table] = err
}

func (s *Store) FailGet(table records.Table, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr[table] = err
}

func (s *Store) GetRows(ctx context.Context, table records.Table) ([]records.Row, error) {
	if !records.ValidTable(table) {
		return nil, fmt.Errorf("%w: %s", records.ErrUnknownTable, table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr[table]; err != nil {
		return nil, err
	}
	rows := s.tables[table]
	out := make([]records.Row, 0, len(rows))
	for i, r := range rows {
		out = append(out, &row{store: s, table: table, index: i, fields: records.CopyFields(r)})
	}
	return out, nil
}

func (s *Store) AddRow(ctx context.Context, table records.Table, fields map[string]string) error {
	if !records.ValidTable(table) {
		return fmt.Errorf("%w: %s", records.ErrUnknownTable, table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addErr[table]; err != nil {
		return err
	}
	s.tables[table] = append(s.tables[table], records.CopyFields(fields))
	return nil
}

type row struct {
	store  *Store
	table  records.Table
	index  int
	fields map[string]string
}

func (r *row) Get(field string) string   { return r.fields[field] }
func (r *row) Set(field, value string)   { r.fields[field] = value }
func (r *row) Fields() map[string]string { return records.CopyFields(r.fields) }

func (r *row) Save(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.saveErr[r.table]; err != nil {
		return err
	}
	rows := r.store.tables[r.table]
	if r.index >= len(rows) {
		return fmt.Errorf("%w: %s row %d", records.ErrStaleRow, r.table, r.index)
	}
	rows[r.index] = records.CopyFields(r.fields)
	return nil
}
