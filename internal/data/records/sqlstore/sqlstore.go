// Package sqlstore keeps collection records in a single generic SQL table
// through gorm. Each row carries its table name, a JSON field map and a
// version used for optimistic concurrency on Save.
package sqlstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/waxal-backend/internal/data/records"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type RecordRow struct {
	ID        uuid.UUID                             `gorm:"type:uuid;primaryKey" json:"id"`
	Sheet     string                                `gorm:"column:sheet;not null;index" json:"sheet"`
	Fields    datatypes.JSONType[map[string]string] `gorm:"column:fields;not null" json:"fields"`
	Version   int                                   `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time                             `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time                             `gorm:"not null" json:"updated_at"`
}

func (RecordRow) TableName() string { return "record_rows" }

type Config struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

func Open(baseLog *logger.Logger, cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	return New(db, baseLog)
}

// New wraps an existing connection and migrates the record table.
func New(db *gorm.DB, baseLog *logger.Logger) (*Store, error) {
	if err := db.AutoMigrate(&RecordRow{}); err != nil {
		return nil, fmt.Errorf("automigrate record_rows: %w", err)
	}
	return &Store{db: db, log: baseLog.With("store", "SQLRecordStore")}, nil
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) GetRows(ctx context.Context, table records.Table) ([]records.Row, error) {
	if !records.ValidTable(table) {
		return nil, fmt.Errorf("%w: %s", records.ErrUnknownTable, table)
	}
	var results []RecordRow
	if err := s.db.WithContext(ctx).
		Where("sheet = ?", string(table)).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("load %s rows: %w", table, err)
	}
	out := make([]records.Row, 0, len(results))
	for _, rr := range results {
		fields := rr.Fields.Data()
		if fields == nil {
			fields = map[string]string{}
		}
		out = append(out, &row{store: s, id: rr.ID, version: rr.Version, fields: records.CopyFields(fields)})
	}
	return out, nil
}

func (s *Store) AddRow(ctx context.Context, table records.Table, fields map[string]string) error {
	if !records.ValidTable(table) {
		return fmt.Errorf("%w: %s", records.ErrUnknownTable, table)
	}
	now := time.Now().UTC()
	rr := &RecordRow{
		ID:        uuid.New(),
		Sheet:     string(table),
		Fields:    datatypes.NewJSONType(records.CopyFields(fields)),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(rr).Error; err != nil {
		return fmt.Errorf("insert %s row: %w", table, err)
	}
	return nil
}

type row struct {
	store   *Store
	id      uuid.UUID
	version int
	fields  map[string]string
}

func (r *row) Get(field string) string   { return r.fields[field] }
func (r *row) Set(field, value string)   { r.fields[field] = value }
func (r *row) Fields() map[string]string { return records.CopyFields(r.fields) }

func (r *row) Save(ctx context.Context) error {
	res := r.store.db.WithContext(ctx).
		Model(&RecordRow{}).
		Where("id = ? AND version = ?", r.id, r.version).
		Updates(map[string]any{
			"fields":     datatypes.NewJSONType(records.CopyFields(r.fields)),
			"version":    r.version + 1,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("save row %s: %w", r.id, res.Error)
	}
	if res.RowsAffected == 0 {
		r.store.log.Warn("Optimistic save lost", "row_id", r.id.String(), "version", r.version)
		return fmt.Errorf("%w: %s", records.ErrStaleRow, r.id)
	}
	r.version++
	return nil
}
