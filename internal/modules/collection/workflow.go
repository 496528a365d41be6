// Package collection runs the participant conversation: it reads the
// participant's persisted status, validates what they sent, records accepted
// responses and picks the next prompt.
package collection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/waxal-backend/internal/clients/twilio"
	repos "github.com/yungbote/waxal-backend/internal/data/repos/collection"
	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/observability"
	"github.com/yungbote/waxal-backend/internal/platform/ctxutil"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

var ErrNotRegistered = errors.New("participant not registered")

const errorReplyTimeout = 20 * time.Second

type InboundEvent struct {
	SenderID  string
	Text      string
	MediaURL  string
	MessageID string
}

type MediaFetcher interface {
	FetchMedia(ctx context.Context, url string) (*twilio.Media, error)
}

type BlobStore interface {
	Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error)
}

type AudioInspector interface {
	MeasureDuration(ctx context.Context, r io.Reader) float64
}

type UsecasesDeps struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer

	Repos repos.Repos
	Vars  vars.Store

	Messenger Messenger
	Media     MediaFetcher
	Blob      BlobStore
	Audio     AudioInspector
	Selector  *Selector
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "CollectionWorkflow")
	if deps.Selector == nil {
		deps.Selector = NewSelector(nil)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(observability.TracerName)
	}
	return Usecases{deps: deps}
}

// HandleEvent runs one participant turn. It never returns an error: failures
// are logged and answered with the generic error message.
func (u Usecases) HandleEvent(ctx context.Context, ev InboundEvent) {
	start := time.Now()
	sender := types.NormalizePhone(ev.SenderID)
	ctx, span := u.deps.Tracer.Start(ctx, "collection.HandleEvent",
		trace.WithAttributes(attribute.String("message.id", ev.MessageID)))
	defer span.End()

	t := &turn{
		event:  ev,
		sender: sender,
		log:    u.deps.Log.With("message_sid", ev.MessageID, "from", sender),
	}
	if sender == "" {
		t.log.Warn("Inbound event has no usable sender; ignoring")
		u.finish(span, t, OutcomeIgnored, start)
		return
	}

	err := u.run(ctx, t)
	if err != nil {
		t.log.Error("Turn failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if sendErr := u.sendErrorReply(ctx, sender); sendErr != nil {
			t.log.Error("Could not send error message", "error", sendErr)
		}
		t.outcome = OutcomeError
	}
	u.finish(span, t, t.outcome, start)
}

// sendErrorReply answers on a context detached from the turn, so a turn that
// failed because its context ended still reaches the sender.
func (u Usecases) sendErrorReply(ctx context.Context, sender string) error {
	replyCtx, cancel := ctxutil.Detached(ctx, errorReplyTimeout)
	defer cancel()
	return sendVar(replyCtx, u.deps.Messenger, u.deps.Vars, sender, VarErrorMessage)
}

func (u Usecases) finish(span trace.Span, t *turn, outcome string, start time.Time) {
	span.SetAttributes(attribute.String("turn.outcome", outcome))
	if t.p != nil {
		span.SetAttributes(
			attribute.String("participant.status", string(t.p.Status)),
			attribute.String("participant.type", string(t.p.Type)),
		)
	}
	u.deps.Metrics.ObserveTurn(outcome, time.Since(start))
	t.log.Debug("Turn finished", "outcome", outcome, "duration_ms", time.Since(start).Milliseconds())
}

// run looks the sender up and steps the state machine. A panic is turned
// into an error so the caller can still answer the sender.
func (u Usecases) run(ctx context.Context, t *turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in turn: %v", r)
		}
	}()

	p, err := u.lookup(ctx, t.sender)
	if errors.Is(err, ErrNotRegistered) {
		t.log.Info("Participant not registered")
		t.outcome = OutcomeNotRegistered
		return sendVar(ctx, u.deps.Messenger, u.deps.Vars, t.sender, VarNotRegistered)
	}
	if err != nil {
		return err
	}
	t.p = p
	t.log = t.log.With("participant", p.Key, "status", p.Status, "type", p.Type)
	return u.step(ctx, t)
}

func (u Usecases) lookup(ctx context.Context, phone string) (*repos.ParticipantRow, error) {
	p, err := u.deps.Repos.Participants.GetByPhone(ctx, phone)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}
	return p, nil
}

func (u Usecases) handleResponse(ctx context.Context, t *turn) error {
	if v := Validate(t.p.Type, t.event.Text, t.event.MediaURL); !v.Accepted {
		return u.rejectResponse(ctx, t, v.Reason)
	}

	var recorded bool
	var err error
	if t.p.IsTranscriber() {
		recorded, err = u.recordTranscription(ctx, t)
	} else {
		recorded, err = u.recordVoiceNote(ctx, t)
	}
	if err != nil || !recorded {
		return err
	}
	u.deps.Metrics.IncResponseRecorded(string(t.p.Type))

	t.p.ResponsesGiven++
	if t.p.Done() {
		t.p.Status = types.StatusCompleted
	} else {
		t.p.Status = types.StatusReady
	}
	t.log.Info("Response recorded", "responses", t.p.ResponsesGiven, "questions", t.p.QuestionsRequired, "next_status", t.p.Status)
	if err := t.p.Save(ctx); err != nil {
		return err
	}
	if t.p.Status == types.StatusCompleted {
		return u.sendCompletion(ctx, t)
	}
	return u.sendNextPrompt(ctx, t)
}

func (u Usecases) rejectResponse(ctx context.Context, t *turn, reason Reason) error {
	t.log.Info("Response rejected", "reason", reason)
	t.outcome = OutcomeRejected
	u.deps.Metrics.IncRejection(string(reason))
	return sendVar(ctx, u.deps.Messenger, u.deps.Vars, t.sender, reason.CorrectiveVar())
}

func (u Usecases) recordTranscription(ctx context.Context, t *turn) (bool, error) {
	lang, err := u.transcriptionLanguage(t.p)
	if err != nil {
		return false, err
	}
	_, err = u.deps.Repos.Transcriptions.Create(ctx, &types.Transcription{
		TranscriberKey: t.p.Key,
		ResponseKey:    t.p.LastPromptKey,
		TargetLanguage: lang,
		Text:           strings.TrimSpace(t.event.Text),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// recordVoiceNote fetches the voice note once, measures it, and only uploads
// and records it when it is long enough.
func (u Usecases) recordVoiceNote(ctx context.Context, t *turn) (bool, error) {
	minSeconds, err := floatVar(u.deps.Vars, VarMinAudioSeconds)
	if err != nil {
		return false, err
	}
	media, err := u.deps.Media.FetchMedia(ctx, t.event.MediaURL)
	if err != nil {
		return false, fmt.Errorf("fetch voice note: %w", err)
	}
	data, err := io.ReadAll(media.Body)
	_ = media.Body.Close()
	if err != nil {
		return false, fmt.Errorf("read voice note: %w", err)
	}

	seconds := u.deps.Audio.MeasureDuration(ctx, bytes.NewReader(data))
	u.deps.Metrics.ObserveVoiceNote(seconds)
	if v := CheckDuration(seconds, minSeconds); !v.Accepted {
		t.log.Info("Voice note too short", "seconds", seconds, "min_seconds", minSeconds)
		return false, u.rejectResponse(ctx, t, v.Reason)
	}

	key := t.p.LastPromptKey + "/" + t.p.Key
	audioURL, err := u.deps.Blob.Upload(ctx, bytes.NewReader(data), key, media.ContentType)
	if err != nil {
		return false, fmt.Errorf("upload voice note: %w", err)
	}
	_, err = u.deps.Repos.Responses.Create(ctx, &types.Response{
		ParticipantKey: t.p.Key,
		PromptKey:      t.p.LastPromptKey,
		AudioURL:       audioURL,
		Duration:       seconds,
		Language:       u.responseLanguage(t.p),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// sendNextPrompt selects, sends and then persists Prompted. An exhausted
// pool is answered with a notice and leaves the participant as is.
func (u Usecases) sendNextPrompt(ctx context.Context, t *turn) error {
	sel, err := u.selectNext(ctx, t.p)
	if errors.Is(err, ErrExhaustedPool) {
		t.log.Warn("No eligible prompts remain", "responses", t.p.ResponsesGiven)
		t.outcome = OutcomeExhausted
		u.deps.Metrics.IncPoolExhausted(string(t.p.Type))
		return sendVar(ctx, u.deps.Messenger, u.deps.Vars, t.sender, VarNoPromptsAvailable)
	}
	if err != nil {
		return err
	}

	body := promptBody(sel.Position, t.p.QuestionsRequired, sel.Item.Text)
	if err := u.deps.Messenger.Send(ctx, t.sender, body, sel.Item.Media); err != nil {
		return fmt.Errorf("send prompt %s: %w", sel.Item.Key, err)
	}
	u.deps.Metrics.IncPromptSent(string(t.p.Type))

	t.p.Status = types.StatusPrompted
	t.p.LastPromptKey = sel.Item.Key
	t.outcome = OutcomePrompted
	t.log.Info("Prompt sent", "prompt", sel.Item.Key, "position", sel.Position)
	return t.p.Save(ctx)
}

func (u Usecases) selectNext(ctx context.Context, p *repos.ParticipantRow) (Selection, error) {
	if p.IsTranscriber() {
		return u.selectResponse(ctx, p)
	}
	return u.selectPrompt(ctx, p)
}

func (u Usecases) selectPrompt(ctx context.Context, p *repos.ParticipantRow) (Selection, error) {
	var prompts []*types.Prompt
	var responses []*types.Response
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prompts, err = u.deps.Repos.Prompts.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		responses, err = u.deps.Repos.Responses.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Selection{}, fmt.Errorf("load prompt pool: %w", err)
	}
	pool, seen := PromptPool(prompts, responses, p.Key)
	return u.deps.Selector.SelectNext(pool, seen)
}

func (u Usecases) selectResponse(ctx context.Context, p *repos.ParticipantRow) (Selection, error) {
	limit, err := vars.Int(u.deps.Vars, VarTranscriptionsPerResponse)
	if err != nil {
		return Selection{}, err
	}
	lang, err := u.transcriptionLanguage(p)
	if err != nil {
		return Selection{}, err
	}
	var responses []*types.Response
	var transcriptions []*types.Transcription
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		responses, err = u.deps.Repos.Responses.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		transcriptions, err = u.deps.Repos.Transcriptions.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Selection{}, fmt.Errorf("load transcription pool: %w", err)
	}
	pool, seen := EligibleResponses(responses, transcriptions, p.Key, lang, limit)
	return u.deps.Selector.SelectNext(pool, seen)
}

// transcriptionLanguage is the participant's language, else the
// transcription-language variable.
func (u Usecases) transcriptionLanguage(p *repos.ParticipantRow) (string, error) {
	if p.Language != "" {
		return p.Language, nil
	}
	return u.deps.Vars.Get(VarTranscriptionLanguage)
}

// responseLanguage falls back to the optional language variable.
func (u Usecases) responseLanguage(p *repos.ParticipantRow) string {
	if p.Language != "" {
		return p.Language
	}
	lang, _ := u.deps.Vars.Get(VarLanguage)
	return lang
}

func floatVar(s vars.Store, name string) (float64, error) {
	raw, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("variable %s: not a number: %q", name, raw)
	}
	return f, nil
}
