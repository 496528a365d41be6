package collection

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/waxal-backend/internal/data/records"
	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type TranscriptionRepo interface {
	List(ctx context.Context) ([]*types.Transcription, error)
	Create(ctx context.Context, t *types.Transcription) (*types.Transcription, error)
}

type transcriptionRepo struct {
	store records.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewTranscriptionRepo(store records.Store, baseLog *logger.Logger) TranscriptionRepo {
	repoLog := baseLog.With("repo", "TranscriptionRepo")
	return &transcriptionRepo{store: store, log: repoLog, now: time.Now}
}

func (r *transcriptionRepo) List(ctx context.Context) ([]*types.Transcription, error) {
	rows, err := r.store.GetRows(ctx, records.TableTranscription)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Transcription, 0, len(rows))
	for _, row := range rows {
		t := &types.Transcription{
			Key:            strings.TrimSpace(row.Get(records.FieldKey)),
			TranscriberKey: strings.TrimSpace(row.Get(records.FieldTranscriber)),
			ResponseKey:    strings.TrimSpace(row.Get(records.FieldResponse)),
			TargetLanguage: strings.TrimSpace(row.Get(records.FieldTargetLanguage)),
			Text:           row.Get(records.FieldText),
			Status:         strings.TrimSpace(row.Get(records.FieldStatus)),
		}
		t.CreatedAt = parseRowTime(r.log, row.Get(records.FieldCreatedAt), "transcription_key", t.Key)
		out = append(out, t)
	}
	return out, nil
}

func (r *transcriptionRepo) Create(ctx context.Context, t *types.Transcription) (*types.Transcription, error) {
	if t == nil {
		return nil, fmt.Errorf("nil transcription")
	}
	if t.Key == "" {
		t.Key = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = types.RowStatusNew
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	fields := map[string]string{
		records.FieldKey:            t.Key,
		records.FieldTranscriber:    t.TranscriberKey,
		records.FieldTargetLanguage: t.TargetLanguage,
		records.FieldText:           t.Text,
		records.FieldCreatedAt:      t.CreatedAt.UTC().Format(http.TimeFormat),
		records.FieldStatus:         t.Status,
		records.FieldResponse:       t.ResponseKey,
	}
	if err := r.store.AddRow(ctx, records.TableTranscription, fields); err != nil {
		return nil, fmt.Errorf("add transcription row: %w", err)
	}
	return t, nil
}
