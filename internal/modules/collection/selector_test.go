package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/waxal-backend/internal/domain/collection"
)

func fixed(v float64) func() float64 { return func() float64 { return v } }

func TestSelectNextSkipsSeen(t *testing.T) {
	pool := []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}, {Key: "d"}}
	seen := map[string]struct{}{"a": {}, "c": {}}

	for _, r := range []float64{0, 0.25, 0.49, 0.5, 0.75, 0.999999} {
		sel, err := NewSelector(fixed(r)).SelectNext(pool, seen)
		require.NoError(t, err)
		_, isSeen := seen[sel.Item.Key]
		assert.False(t, isSeen, "r=%v picked seen key %s", r, sel.Item.Key)
		assert.Equal(t, 3, sel.Position)
	}
}

func TestSelectNextUniformIndex(t *testing.T) {
	pool := []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}, {Key: "d"}}

	sel, err := NewSelector(fixed(0)).SelectNext(pool, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", sel.Item.Key)

	sel, err = NewSelector(fixed(0.5)).SelectNext(pool, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", sel.Item.Key)

	sel, err = NewSelector(fixed(0.9999)).SelectNext(pool, nil)
	require.NoError(t, err)
	assert.Equal(t, "d", sel.Item.Key)

	// A misbehaving source of exactly 1 still lands on the last item.
	sel, err = NewSelector(fixed(1)).SelectNext(pool, nil)
	require.NoError(t, err)
	assert.Equal(t, "d", sel.Item.Key)
	assert.Equal(t, 1, sel.Position)
}

func TestSelectNextExhausted(t *testing.T) {
	s := NewSelector(nil)

	_, err := s.SelectNext(nil, nil)
	assert.ErrorIs(t, err, ErrExhaustedPool)

	_, err = s.SelectNext([]Item{{Key: "a"}}, map[string]struct{}{"a": {}})
	assert.ErrorIs(t, err, ErrExhaustedPool)
}

func TestSelectNextPositionIgnoresPoolSize(t *testing.T) {
	seen := map[string]struct{}{"x": {}, "y": {}, "z": {}, "gone": {}}
	sel, err := NewSelector(nil).SelectNext([]Item{{Key: "a"}}, seen)
	require.NoError(t, err)
	assert.Equal(t, "a", sel.Item.Key)
	assert.Equal(t, 5, sel.Position)
}

func TestSelectNextDefaultSourceStaysInPool(t *testing.T) {
	pool := []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	seen := map[string]struct{}{"b": {}}
	s := NewSelector(nil)
	for i := 0; i < 200; i++ {
		sel, err := s.SelectNext(pool, seen)
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "c"}, sel.Item.Key)
	}
}

func TestPromptPool(t *testing.T) {
	prompts := []*types.Prompt{
		{Key: "p1", Text: "Describe the picture", Media: "https://img/1.jpg"},
		{Key: "p2", Media: "https://img/2.jpg"},
		nil,
		{Key: ""},
	}
	responses := []*types.Response{
		{ParticipantKey: "u1", PromptKey: "p1"},
		{ParticipantKey: "u2", PromptKey: "p2"},
		{ParticipantKey: "u1", PromptKey: "retired"},
	}

	pool, seen := PromptPool(prompts, responses, "u1")
	require.Len(t, pool, 2)
	assert.Equal(t, Item{Key: "p1", Text: "Describe the picture", Media: "https://img/1.jpg"}, pool[0])
	assert.Equal(t, map[string]struct{}{"p1": {}, "retired": {}}, seen)
}

func TestEligibleResponsesCapIsPerLanguage(t *testing.T) {
	responses := []*types.Response{
		{Key: "r1", AudioURL: "https://blob/r1"},
		{Key: "r2", AudioURL: "https://blob/r2"},
		{Key: "r3", AudioURL: "https://blob/r3"},
	}
	transcriptions := []*types.Transcription{
		{TranscriberKey: "t2", ResponseKey: "r1", TargetLanguage: "wo"},
		{TranscriberKey: "t3", ResponseKey: "r1", TargetLanguage: "wo"},
		{TranscriberKey: "t2", ResponseKey: "r2", TargetLanguage: "fr"},
		{TranscriberKey: "t3", ResponseKey: "r2", TargetLanguage: "fr"},
		{TranscriberKey: "t1", ResponseKey: "r3", TargetLanguage: "wo"},
	}

	pool, seen := EligibleResponses(responses, transcriptions, "t1", "wo", 2)
	keys := make([]string, 0, len(pool))
	for _, it := range pool {
		keys = append(keys, it.Key)
	}
	// r1 is full in wo; r2 only has fr transcriptions.
	assert.Equal(t, []string{"r2", "r3"}, keys)
	assert.Equal(t, "https://blob/r2", pool[0].Media)
	assert.Equal(t, map[string]struct{}{"r3": {}}, seen)

	sel, err := NewSelector(fixed(0.99)).SelectNext(pool, seen)
	require.NoError(t, err)
	assert.Equal(t, "r2", sel.Item.Key)
	assert.Equal(t, 2, sel.Position)
}

func TestEligibleResponsesZeroCapExhausts(t *testing.T) {
	pool, seen := EligibleResponses([]*types.Response{{Key: "r1"}}, nil, "t1", "wo", 0)
	_, err := NewSelector(nil).SelectNext(pool, seen)
	assert.ErrorIs(t, err, ErrExhaustedPool)
}
