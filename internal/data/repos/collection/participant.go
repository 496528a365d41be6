package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/waxal-backend/internal/data/records"
	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("record not found")

// ParticipantRow is a typed participant bound to the stored row it was read
// from. Save writes the typed fields back onto that row.
type ParticipantRow struct {
	types.Participant
	row records.Row
}

func (p *ParticipantRow) Save(ctx context.Context) error {
	p.row.Set(records.FieldStatus, string(p.Status))
	p.row.Set(records.FieldResponses, strconv.Itoa(p.ResponsesGiven))
	p.row.Set(records.FieldLastPrompt, p.LastPromptKey)
	if err := p.row.Save(ctx); err != nil {
		return fmt.Errorf("save participant %s: %w", p.Key, err)
	}
	return nil
}

type ParticipantRepo interface {
	GetByPhone(ctx context.Context, phone string) (*ParticipantRow, error)
}

type participantRepo struct {
	store records.Store
	log   *logger.Logger
}

func NewParticipantRepo(store records.Store, baseLog *logger.Logger) ParticipantRepo {
	repoLog := baseLog.With("repo", "ParticipantRepo")
	return &participantRepo{store: store, log: repoLog}
}

// GetByPhone matches on the normalized phone of both sides, so sheets that
// store "+1 555..." still resolve.
func (r *participantRepo) GetByPhone(ctx context.Context, phone string) (*ParticipantRow, error) {
	want := types.NormalizePhone(phone)
	if want == "" {
		return nil, ErrNotFound
	}
	rows, err := r.store.GetRows(ctx, records.TableParticipant)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if types.NormalizePhone(row.Get(records.FieldPhone)) != want {
			continue
		}
		p, err := participantFromRow(row)
		if err != nil {
			r.log.Warn("Participant row has unusable counters", "participant_key", p.Key, "error", err)
			return nil, err
		}
		return &ParticipantRow{Participant: p, row: row}, nil
	}
	return nil, ErrNotFound
}

func participantFromRow(row records.Row) (types.Participant, error) {
	p := types.Participant{
		Phone:         types.NormalizePhone(row.Get(records.FieldPhone)),
		Key:           strings.TrimSpace(row.Get(records.FieldKey)),
		Status:        types.Status(strings.TrimSpace(row.Get(records.FieldStatus))),
		Type:          types.ParseParticipantType(row.Get(records.FieldType)),
		LastPromptKey: strings.TrimSpace(row.Get(records.FieldLastPrompt)),
		Language:      strings.TrimSpace(row.Get(records.FieldLanguage)),
	}
	given, err := parseCount(row.Get(records.FieldResponses), true)
	if err != nil {
		return p, fmt.Errorf("participant %s %s: %w", p.Key, records.FieldResponses, err)
	}
	required, err := parseCount(row.Get(records.FieldQuestions), false)
	if err != nil {
		return p, fmt.Errorf("participant %s %s: %w", p.Key, records.FieldQuestions, err)
	}
	p.ResponsesGiven = given
	p.QuestionsRequired = required
	return p, nil
}

func parseCount(raw string, blankIsZero bool) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if blankIsZero {
			return 0, nil
		}
		return 0, errors.New("empty")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative: %d", n)
	}
	return n, nil
}
