package collection

import (
	"context"
	"fmt"

	repos "github.com/yungbote/waxal-backend/internal/data/repos/collection"
	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

// Turn outcomes, also used as metric labels.
const (
	OutcomePrompted      = "prompted"
	OutcomeCompleted     = "completed"
	OutcomeRejected      = "rejected"
	OutcomeNotRegistered = "not_registered"
	OutcomeExhausted     = "exhausted"
	OutcomeIgnored       = "ignored"
	OutcomeError         = "error"
)

// turn is the per-event view a transition works on. Nothing outlives it.
type turn struct {
	event   InboundEvent
	sender  string
	p       *repos.ParticipantRow
	log     *logger.Logger
	outcome string
}

// effect is one side effect of a transition. Effects run in order and the
// first error aborts the turn.
type effect func(u Usecases, ctx context.Context, t *turn) error

type transition struct {
	name    string
	guard   func(t *turn) bool
	effects []effect
}

func done(t *turn) bool { return t.p.Done() }

func noPendingPrompt(t *turn) bool { return t.p.LastPromptKey == "" }

// machine lists, per persisted status, the guarded transitions in priority
// order. The first transition whose guard holds fires; a nil guard always
// holds.
var machine = map[types.Status][]transition{
	types.StatusConsented: {
		{name: "onboard_and_complete", guard: done, effects: []effect{Usecases.sendOnboarding, Usecases.complete}},
		{name: "onboard_and_prompt", effects: []effect{Usecases.sendOnboarding, Usecases.sendNextPrompt}},
	},
	types.StatusReady: {
		{name: "complete", guard: done, effects: []effect{Usecases.complete}},
		{name: "prompt", effects: []effect{Usecases.sendNextPrompt}},
	},
	types.StatusPrompted: {
		{name: "complete", guard: done, effects: []effect{Usecases.complete}},
		{name: "reprompt", guard: noPendingPrompt, effects: []effect{Usecases.warnNoPendingPrompt, Usecases.sendNextPrompt}},
		{name: "respond", effects: []effect{Usecases.handleResponse}},
	},
	types.StatusCompleted: {
		{name: "acknowledge", effects: []effect{Usecases.sendCompletion}},
	},
}

func (u Usecases) step(ctx context.Context, t *turn) error {
	transitions, ok := machine[t.p.Status]
	if !ok {
		return fmt.Errorf("participant %s: unknown status %q", t.p.Key, t.p.Status)
	}
	for _, tr := range transitions {
		if tr.guard != nil && !tr.guard(t) {
			continue
		}
		t.log.Debug("Transition", "status", t.p.Status, "transition", tr.name)
		for _, fx := range tr.effects {
			if err := fx(u, ctx, t); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("participant %s: no transition from %q", t.p.Key, t.p.Status)
}

func (u Usecases) sendOnboarding(ctx context.Context, t *turn) error {
	name := VarConsent
	if t.p.IsTranscriber() {
		name = VarTranscriptionInstructions
	}
	t.log.Info("Sending onboarding message", "message", name)
	return sendVar(ctx, u.deps.Messenger, u.deps.Vars, t.sender, name)
}

func (u Usecases) warnNoPendingPrompt(_ context.Context, t *turn) error {
	t.log.Warn("Prompted participant has no last prompt; prompting again")
	return nil
}

// complete persists Completed if needed and sends the closing message.
func (u Usecases) complete(ctx context.Context, t *turn) error {
	if t.p.Status != types.StatusCompleted {
		t.p.Status = types.StatusCompleted
		if err := t.p.Save(ctx); err != nil {
			return err
		}
	}
	return u.sendCompletion(ctx, t)
}

func (u Usecases) sendCompletion(ctx context.Context, t *turn) error {
	t.outcome = OutcomeCompleted
	return sendVar(ctx, u.deps.Messenger, u.deps.Vars, t.sender, VarSurveyCompleted)
}
