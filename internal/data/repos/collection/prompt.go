package collection

import (
	"context"
	"strings"

	"github.com/yungbote/waxal-backend/internal/data/records"
	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type PromptRepo interface {
	List(ctx context.Context) ([]*types.Prompt, error)
}

type promptRepo struct {
	store records.Store
	log   *logger.Logger
}

func NewPromptRepo(store records.Store, baseLog *logger.Logger) PromptRepo {
	repoLog := baseLog.With("repo", "PromptRepo")
	return &promptRepo{store: store, log: repoLog}
}

// List skips rows without a key; they cannot be tracked as seen.
func (r *promptRepo) List(ctx context.Context) ([]*types.Prompt, error) {
	rows, err := r.store.GetRows(ctx, records.TablePrompt)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Prompt, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		key := strings.TrimSpace(row.Get(records.FieldKey))
		if key == "" {
			skipped++
			continue
		}
		media := strings.TrimSpace(row.Get(records.FieldMedia))
		if media == "" {
			media = strings.TrimSpace(row.Get(records.FieldImage))
		}
		out = append(out, &types.Prompt{
			Key:   key,
			Text:  strings.TrimSpace(row.Get(records.FieldText)),
			Media: media,
		})
	}
	if skipped > 0 {
		r.log.Warn("Skipped prompt rows without a key", "skipped", skipped, "kept", len(out))
	}
	return out, nil
}
