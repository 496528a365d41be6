package collection

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"

	types "github.com/yungbote/waxal-backend/internal/domain/collection"
)

var ErrExhaustedPool = errors.New("no eligible prompts remain")

// Item is anything that can be sent as the next prompt: a Prompt row for
// respondents, a Response row for transcribers.
type Item struct {
	Key   string
	Text  string
	Media string
}

type Selection struct {
	Item     Item
	Position int
}

type Selector struct {
	rand func() float64
}

// NewSelector uses src as the [0,1) random source; nil means math/rand/v2.
func NewSelector(src func() float64) *Selector {
	if src == nil {
		src = rand.Float64
	}
	return &Selector{rand: src}
}

// SelectNext picks uniformly among pool items whose key is not in seen.
// Position is len(seen)+1 whatever the pool size.
func (s *Selector) SelectNext(pool []Item, seen map[string]struct{}) (Selection, error) {
	eligible := make([]Item, 0, len(pool))
	for _, it := range pool {
		if _, ok := seen[it.Key]; ok {
			continue
		}
		eligible = append(eligible, it)
	}
	if len(eligible) == 0 {
		return Selection{}, ErrExhaustedPool
	}
	idx := int(math.Floor(s.rand() * float64(len(eligible))))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(eligible) {
		idx = len(eligible) - 1
	}
	return Selection{Item: eligible[idx], Position: len(seen) + 1}, nil
}

// PromptPool returns every prompt and the keys of prompts the respondent has
// already answered.
func PromptPool(prompts []*types.Prompt, responses []*types.Response, participantKey string) ([]Item, map[string]struct{}) {
	pool := make([]Item, 0, len(prompts))
	for _, p := range prompts {
		if p == nil || p.Key == "" {
			continue
		}
		pool = append(pool, Item{Key: p.Key, Text: p.Text, Media: p.Media})
	}
	seen := map[string]struct{}{}
	for _, r := range responses {
		if r == nil || r.ParticipantKey != participantKey || r.PromptKey == "" {
			continue
		}
		seen[r.PromptKey] = struct{}{}
	}
	return pool, seen
}

// EligibleResponses returns the responses that still take transcriptions in
// language (fewer than limit rows with that target language) and the set of
// responses the transcriber has already claimed.
func EligibleResponses(responses []*types.Response, transcriptions []*types.Transcription, transcriberKey, language string, limit int) ([]Item, map[string]struct{}) {
	seen := map[string]struct{}{}
	perResponse := map[string]int{}
	for _, t := range transcriptions {
		if t == nil {
			continue
		}
		if t.TranscriberKey == transcriberKey && t.ResponseKey != "" {
			seen[t.ResponseKey] = struct{}{}
		}
		if strings.EqualFold(strings.TrimSpace(t.TargetLanguage), strings.TrimSpace(language)) {
			perResponse[t.ResponseKey]++
		}
	}
	pool := make([]Item, 0, len(responses))
	for _, r := range responses {
		if r == nil || r.Key == "" {
			continue
		}
		if perResponse[r.Key] >= limit {
			continue
		}
		pool = append(pool, Item{Key: r.Key, Media: r.AudioURL})
	}
	return pool, seen
}
