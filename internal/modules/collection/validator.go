package collection

import (
	"strings"

	types "github.com/yungbote/waxal-backend/internal/domain/collection"
)

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMissingText  Reason = "missing_text"
	ReasonMissingAudio Reason = "missing_audio"
	ReasonTooShort     Reason = "too_short"
)

type Verdict struct {
	Accepted bool
	Reason   Reason
}

var accepted = Verdict{Accepted: true}

func reject(r Reason) Verdict { return Verdict{Reason: r} }

// Validate checks what a participant of ptype must attach. Transcribers need
// text and their media is ignored; respondents need a voice note, which is
// only provisionally accepted until CheckDuration runs.
func Validate(ptype types.ParticipantType, text, mediaURL string) Verdict {
	if ptype == types.TypeTranscriber {
		if strings.TrimSpace(text) == "" {
			return reject(ReasonMissingText)
		}
		return accepted
	}
	if strings.TrimSpace(mediaURL) == "" {
		return reject(ReasonMissingAudio)
	}
	return accepted
}

func CheckDuration(seconds, minSeconds float64) Verdict {
	if seconds < minSeconds {
		return reject(ReasonTooShort)
	}
	return accepted
}

// CorrectiveVar names the message sent back for a rejection.
func (r Reason) CorrectiveVar() string {
	switch r {
	case ReasonMissingText:
		return VarTranscriptionInstructions
	case ReasonMissingAudio:
		return VarVoiceNoteRequired
	case ReasonTooShort:
		return VarVoiceNoteTooShort
	default:
		return VarErrorMessage
	}
}
