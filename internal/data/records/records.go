// Package records defines the row-oriented store the collection workflow
// persists to. Rows are string-valued field maps keyed by column header, the
// shape of a spreadsheet tab, so the same contract fits Google Sheets and a
// SQL table alike.
package records

import (
	"context"
	"errors"
)

type Table string

const (
	TableParticipant   Table = "Participant"
	TablePrompt        Table = "Prompt"
	TableResponse      Table = "Response"
	TableTranscription Table = "Transcription"
)

var Tables = []Table{TableParticipant, TablePrompt, TableResponse, TableTranscription}

// Participant columns.
const (
	FieldPhone      = "Phone"
	FieldStatus     = "Status"
	FieldType       = "Type"
	FieldKey        = "Key"
	FieldResponses  = "Responses"
	FieldQuestions  = "Questions"
	FieldLastPrompt = "Last Prompt"
	FieldLanguage   = "Language"
)

// Prompt columns.
const (
	FieldText  = "Text"
	FieldMedia = "Media"
	// FieldImage is the legacy media column of older prompt sheets.
	FieldImage = "Image"
)

// Response columns.
const (
	FieldParticipant  = "Participant"
	FieldPrompt       = "Prompt"
	FieldAudio        = "Audio"
	FieldDuration     = "Duration"
	FieldTimestamp    = "Timestamp"
	FieldResponseDate = "Response Date"
)

// Transcription columns.
const (
	FieldTranscriber    = "Transcriber"
	FieldResponse       = "Response"
	FieldTargetLanguage = "Target Language"
	FieldCreatedAt      = "Created At"
)

var (
	ErrUnknownTable = errors.New("unknown table")
	// ErrStaleRow is returned by Save when the row changed underneath the caller.
	ErrStaleRow = errors.New("row modified concurrently")
)

// Row is a mutable view of one stored record. Set only changes the view;
// Save persists the current field values in place.
type Row interface {
	Get(field string) string
	Set(field, value string)
	Fields() map[string]string
	Save(ctx context.Context) error
}

type Store interface {
	GetRows(ctx context.Context, table Table) ([]Row, error)
	AddRow(ctx context.Context, table Table, fields map[string]string) error
}

func ValidTable(t Table) bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}

func CopyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
