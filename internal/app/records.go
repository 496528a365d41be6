package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/waxal-backend/internal/config"
	"github.com/yungbote/waxal-backend/internal/data/records"
	"github.com/yungbote/waxal-backend/internal/data/records/memstore"
	"github.com/yungbote/waxal-backend/internal/data/records/sheets"
	"github.com/yungbote/waxal-backend/internal/data/records/sqlstore"
	"github.com/yungbote/waxal-backend/internal/platform/gcp"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

// CredentialsVar holds the Google service account (inline JSON or a file
// path) shared by the Sheets and GCS clients. Empty means application
// default credentials.
const CredentialsVar = "google-credentials"

// RecordBackend is the selected record store plus the SQL handle when the
// sql backend is active.
type RecordBackend struct {
	Name  string
	Store records.Store
	DB    *gorm.DB
}

func (b RecordBackend) Close(log *logger.Logger) {
	if b.DB == nil {
		return
	}
	sqlDB, err := b.DB.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil && log != nil {
		log.Warn("Closing record database failed", "error", err)
	}
}

func wireRecords(ctx context.Context, log *logger.Logger, cfg config.RecordsConfig, v vars.Store) (RecordBackend, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log.Info("Wiring record store...", "backend", backend, "tables", tableNames())

	switch backend {
	case config.RecordsSheets:
		docs, err := spreadsheetDocs(v)
		if err != nil {
			return RecordBackend{}, err
		}
		store, err := sheets.NewWithOptions(ctx, docs, log, gcp.ClientOptions(optionalVar(v, CredentialsVar))...)
		if err != nil {
			return RecordBackend{}, fmt.Errorf("init sheets record store: %w", err)
		}
		return RecordBackend{Name: backend, Store: store}, nil
	case config.RecordsSQL:
		store, err := sqlstore.Open(log, sqlstore.Config{Driver: cfg.SQLDriver, DSN: cfg.SQLDSN})
		if err != nil {
			return RecordBackend{}, fmt.Errorf("init sql record store: %w", err)
		}
		return RecordBackend{Name: backend, Store: store, DB: store.DB()}, nil
	case config.RecordsMemory:
		log.Warn("Using the in-memory record store; nothing will be persisted")
		return RecordBackend{Name: backend, Store: memstore.New()}, nil
	default:
		return RecordBackend{}, fmt.Errorf("unknown records backend %q", cfg.Backend)
	}
}

// spreadsheetDocs resolves the spreadsheet id of every table.
func spreadsheetDocs(v vars.Store) (map[records.Table]string, error) {
	docs := make(map[records.Table]string, len(sheets.SpreadsheetVars))
	var errs []error
	for _, table := range records.Tables {
		id, err := v.Get(sheets.SpreadsheetVars[table])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs[table] = id
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("resolve spreadsheets: %w", errors.Join(errs...))
	}
	return docs, nil
}

func optionalVar(v vars.Store, name string) string {
	s, err := v.Get(name)
	if err != nil {
		return ""
	}
	return s
}
