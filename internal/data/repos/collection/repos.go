// Package collection provides typed views over the record tables.
package collection

import (
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/waxal-backend/internal/data/records"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type Repos struct {
	Participants   ParticipantRepo
	Prompts        PromptRepo
	Responses      ResponseRepo
	Transcriptions TranscriptionRepo
}

func NewRepos(store records.Store, log *logger.Logger) Repos {
	return Repos{
		Participants:   NewParticipantRepo(store, log),
		Prompts:        NewPromptRepo(store, log),
		Responses:      NewResponseRepo(store, log),
		Transcriptions: NewTranscriptionRepo(store, log),
	}
}

// parseRowTime reads an HTTP-date cell. Blank cells are the zero time;
// anything else that fails to parse is logged against the row key.
func parseRowTime(log *logger.Logger, raw, keyName, key string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	ts, err := http.ParseTime(raw)
	if err != nil {
		log.Warn("Row has unreadable timestamp", keyName, key, "value", raw)
		return time.Time{}
	}
	return ts
}
