package collection

import (
	"strings"
	"time"
)

type Status string

const (
	StatusConsented Status = "Consented"
	StatusReady     Status = "Ready"
	StatusPrompted  Status = "Prompted"
	StatusCompleted Status = "Completed"
)

type ParticipantType string

const (
	TypeRespondent  ParticipantType = "Respondent"
	TypeTranscriber ParticipantType = "Transcriber"
)

// ParseParticipantType maps anything that is not "Transcriber" to a
// respondent; registration sheets leave the column empty for respondents.
func ParseParticipantType(raw string) ParticipantType {
	if strings.EqualFold(strings.TrimSpace(raw), string(TypeTranscriber)) {
		return TypeTranscriber
	}
	return TypeRespondent
}

type Participant struct {
	Phone             string
	Key               string
	Status            Status
	Type              ParticipantType
	ResponsesGiven    int
	QuestionsRequired int
	LastPromptKey     string
	Language          string
}

func (p *Participant) IsTranscriber() bool { return p.Type == TypeTranscriber }

// Done reports whether the participant has reached the response target.
func (p *Participant) Done() bool { return p.ResponsesGiven >= p.QuestionsRequired }

type Prompt struct {
	Key   string
	Text  string
	Media string
}

type Response struct {
	Key            string
	ParticipantKey string
	PromptKey      string
	AudioURL       string
	Duration       float64
	Language       string
	Status         string
	CreatedAt      time.Time
}

type Transcription struct {
	Key            string
	TranscriberKey string
	ResponseKey    string
	TargetLanguage string
	Text           string
	Status         string
	CreatedAt      time.Time
}

const RowStatusNew = "New"

// NormalizePhone strips every non-digit character.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
