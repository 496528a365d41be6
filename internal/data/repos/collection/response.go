package collection

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/waxal-backend/internal/data/records"
	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

const responseDateLayout = "2006-01-02"

type ResponseRepo interface {
	List(ctx context.Context) ([]*types.Response, error)
	Create(ctx context.Context, resp *types.Response) (*types.Response, error)
}

type responseRepo struct {
	store records.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewResponseRepo(store records.Store, baseLog *logger.Logger) ResponseRepo {
	repoLog := baseLog.With("repo", "ResponseRepo")
	return &responseRepo{store: store, log: repoLog, now: time.Now}
}

func (r *responseRepo) List(ctx context.Context) ([]*types.Response, error) {
	rows, err := r.store.GetRows(ctx, records.TableResponse)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Response, 0, len(rows))
	for _, row := range rows {
		resp := &types.Response{
			Key:            strings.TrimSpace(row.Get(records.FieldKey)),
			ParticipantKey: strings.TrimSpace(row.Get(records.FieldParticipant)),
			PromptKey:      strings.TrimSpace(row.Get(records.FieldPrompt)),
			AudioURL:       strings.TrimSpace(row.Get(records.FieldAudio)),
			Language:       strings.TrimSpace(row.Get(records.FieldLanguage)),
			Status:         strings.TrimSpace(row.Get(records.FieldStatus)),
		}
		if raw := strings.TrimSpace(row.Get(records.FieldDuration)); raw != "" {
			if d, err := strconv.ParseFloat(raw, 64); err == nil {
				resp.Duration = d
			} else {
				r.log.Warn("Response row has unreadable duration", "response_key", resp.Key, "value", raw)
			}
		}
		resp.CreatedAt = parseRowTime(r.log, row.Get(records.FieldTimestamp), "response_key", resp.Key)
		out = append(out, resp)
	}
	return out, nil
}

// Create fills Key, Status and CreatedAt when unset and appends the row.
func (r *responseRepo) Create(ctx context.Context, resp *types.Response) (*types.Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil response")
	}
	if resp.Key == "" {
		resp.Key = uuid.New().String()
	}
	if resp.Status == "" {
		resp.Status = types.RowStatusNew
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = r.now()
	}
	at := resp.CreatedAt.UTC()
	fields := map[string]string{
		records.FieldKey:          resp.Key,
		records.FieldParticipant:  resp.ParticipantKey,
		records.FieldPrompt:       resp.PromptKey,
		records.FieldAudio:        resp.AudioURL,
		records.FieldTimestamp:    at.Format(http.TimeFormat),
		records.FieldStatus:       resp.Status,
		records.FieldDuration:     strconv.FormatFloat(resp.Duration, 'f', -1, 64),
		records.FieldLanguage:     resp.Language,
		records.FieldResponseDate: at.Format(responseDateLayout),
	}
	if err := r.store.AddRow(ctx, records.TableResponse, fields); err != nil {
		return nil, fmt.Errorf("add response row: %w", err)
	}
	return resp, nil
}
