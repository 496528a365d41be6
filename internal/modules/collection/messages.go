package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

const (
	VarConsent                   = "consent-audio"
	VarTranscriptionInstructions = "transcription-instructions"
	VarNotRegistered             = "not-registered-audio"
	VarErrorMessage              = "error-message-audio"
	VarSurveyCompleted           = "survey-completed-audio"
	VarVoiceNoteRequired         = "voice-note-required-audio"
	VarVoiceNoteTooShort         = "voice-note-too-short-audio"
	VarNoPromptsAvailable        = "no-prompts-available-message"

	VarMinAudioSeconds           = "min-audio-length-secs"
	VarTranscriptionsPerResponse = "transcriptions-per-response"
	VarLanguage                  = "language"
	VarTranscriptionLanguage     = "transcription-language"
)

// RequiredVars is every variable a turn may read that has no fallback.
var RequiredVars = []string{
	VarConsent,
	VarTranscriptionInstructions,
	VarNotRegistered,
	VarErrorMessage,
	VarSurveyCompleted,
	VarVoiceNoteRequired,
	VarVoiceNoteTooShort,
	VarNoPromptsAvailable,
	VarMinAudioSeconds,
	VarTranscriptionsPerResponse,
	VarTranscriptionLanguage,
}

// Messenger delivers one outbound message. Recipient addressing is the
// implementation's concern.
type Messenger interface {
	Send(ctx context.Context, recipient, text, mediaURL string) error
}

// sendVar delivers a catalog message. Names ending in "-audio" hold a media
// URL and go out with an empty body.
func sendVar(ctx context.Context, m Messenger, v vars.Store, recipient, name string) error {
	value, err := v.Get(name)
	if err != nil {
		return err
	}
	if strings.HasSuffix(name, "-audio") {
		err = m.Send(ctx, recipient, "", value)
	} else {
		err = m.Send(ctx, recipient, value, "")
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

func promptBody(position, questions int, text string) string {
	body := fmt.Sprintf("%d/%d", position, questions)
	if t := strings.TrimSpace(text); t != "" {
		body += "\n" + t
	}
	return body
}
