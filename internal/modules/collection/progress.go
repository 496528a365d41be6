package collection

import (
	"context"

	types "github.com/yungbote/waxal-backend/internal/domain/collection"
)

type Progress struct {
	Key               string                `json:"key"`
	Status            types.Status          `json:"status"`
	Type              types.ParticipantType `json:"type"`
	ResponsesGiven    int                   `json:"responses_given"`
	QuestionsRequired int                   `json:"questions_required"`
	LastPromptKey     string                `json:"last_prompt_key,omitempty"`
	Language          string                `json:"language,omitempty"`
}

// GetProgress is the read-only operator view of one participant. It returns
// ErrNotRegistered for unknown phones.
func (u Usecases) GetProgress(ctx context.Context, phone string) (*Progress, error) {
	p, err := u.lookup(ctx, types.NormalizePhone(phone))
	if err != nil {
		return nil, err
	}
	return &Progress{
		Key:               p.Key,
		Status:            p.Status,
		Type:              p.Type,
		ResponsesGiven:    p.ResponsesGiven,
		QuestionsRequired: p.QuestionsRequired,
		LastPromptKey:     p.LastPromptKey,
		Language:          p.Language,
	}, nil
}
