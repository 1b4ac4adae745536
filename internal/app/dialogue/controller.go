// Package dialogue drives the reading flow for one session at a time.
//
// Every state change goes through session.Store.CompareAndSwapState, so a
// duplicated or late callback finds the state already moved and is turned
// away instead of running twice.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PabloGalante/arcana/internal/app/interpretation"
	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/observability"
	"github.com/PabloGalante/arcana/internal/session"
)

// DefaultCommandPrefix marks messages addressed to the bot.
const DefaultCommandPrefix = "?"

// rollbackTimeout bounds the compensating write after a failed reading. It
// runs detached from the event context, which may already be expired.
const rollbackTimeout = 5 * time.Second

var (
	readingIntent = regexp.MustCompile(`(?i)\b(tarot|reading|read (my|the) cards|draw (a |some )?cards?|fortune)\b`)
	identityQuery = regexp.MustCompile(`(?i)\b(who|what) are you\b`)
)

// Outcome is the result of handling one event. Actions are always safe to
// deliver; Err classifies what happened (nil, or wrapping one of the domain
// error kinds) and is meant for logging.
type Outcome struct {
	Actions []domain.Action
	Err     error
}

type Controller struct {
	store  *session.Store
	model  domain.LanguageModel
	assets domain.ImageAssets

	prefix string
	now    func() time.Time
	newID  func() string
	tracer trace.Tracer
}

type Option func(*Controller)

func WithCommandPrefix(prefix string) Option {
	return func(c *Controller) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// NewController wires the flow. assets may be nil, in which case readings
// are text only. The store's deck must hold at least a three card spread.
func NewController(store *session.Store, model domain.LanguageModel, assets domain.ImageAssets, opts ...Option) (*Controller, error) {
	if store == nil || model == nil {
		return nil, fmt.Errorf("%w: dialogue needs a session store and a language model", domain.ErrConfiguration)
	}
	if d := store.Deck(); d == nil || d.Len() < int(domain.SpreadThree) {
		return nil, fmt.Errorf("%w: deck must hold at least %d cards", domain.ErrConfiguration, domain.SpreadThree)
	}

	c := &Controller{
		store:  store,
		model:  model,
		assets: assets,
		prefix: DefaultCommandPrefix,
		now:    time.Now,
		newID:  uuid.NewString,
		tracer: observability.Tracer("dialogue"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Handle processes one inbound event. It never panics and never returns an
// error to the transport: every failure becomes a polite reply plus a
// classified Outcome.Err.
func (c *Controller) Handle(ctx context.Context, ev domain.Event) (out Outcome) {
	key := ev.Key()
	name := eventName(ev)

	ctx, span := c.tracer.Start(ctx, "dialogue."+name, trace.WithAttributes(
		attribute.String("guild_id", string(key.GuildID)),
		attribute.String("user_id", string(key.UserID)),
	))
	defer span.End()

	log := observability.LoggerFromContext(ctx).With(
		"guild_id", key.GuildID,
		"user_id", key.UserID,
		"event", name,
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("dialogue handler panicked", "panic", r)
			out = c.failure(ev, fmt.Errorf("panic: %v", r))
		}
		switch {
		case out.Err == nil:
		case errors.Is(out.Err, domain.ErrCollaboratorFailure):
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, "collaborator failure")
			log.Error("event failed", "error", out.Err)
		default:
			log.Warn("event rejected", "error", out.Err)
		}
	}()

	switch e := ev.(type) {
	case domain.TextMessage:
		return c.handleText(ctx, log, e)
	case domain.ButtonPressed:
		if e.ActorID != e.OriginalRequesterID {
			return unauthorized()
		}
		return c.handleButton(ctx, log, key, e.Control)
	case domain.ModalSubmitted:
		if e.ActorID != e.OriginalRequesterID {
			return unauthorized()
		}
		if e.Control != domain.ControlQuestion {
			return stale()
		}
		return c.submitQuestion(ctx, log, key, e.Fields[domain.QuestionField])
	}
	return Outcome{Err: fmt.Errorf("%w: unsupported event %T", domain.ErrInvalidTransition, ev)}
}

func (c *Controller) handleText(ctx context.Context, log *slog.Logger, e domain.TextMessage) Outcome {
	if e.AuthorIsBot {
		return Outcome{}
	}
	body, ok := strings.CutPrefix(strings.TrimSpace(e.Text), c.prefix)
	if !ok {
		return Outcome{}
	}
	body = strings.TrimSpace(body)

	switch {
	case body == "":
		return reply(domain.SendText{Text: fmt.Sprintf("Please provide a message after the %s command.", c.prefix)})
	case identityQuery.MatchString(body):
		return reply(domain.SendText{Text: identityText})
	case readingIntent.MatchString(body):
		return c.startReading(ctx, log, e.Key())
	}

	answer, err := c.ask(ctx, "chat", interpretation.Chat(body))
	if err != nil {
		return c.failure(e, err)
	}
	return reply(domain.SendText{Text: answer})
}

// startReading moves any state to AwaitingSpreadChoice. A new request
// abandons whatever question was pending; history and context survive.
func (c *Controller) startReading(ctx context.Context, log *slog.Logger, key domain.SessionKey) Outcome {
	ev := domain.TextMessage{ScopeID: key.GuildID, AuthorID: key.UserID}
	for attempt := 0; attempt < 3; attempt++ {
		rec, err := c.store.GetOrCreate(ctx, key)
		if err != nil {
			return c.failure(ev, err)
		}
		if rec.State != domain.AwaitingSpreadChoice() {
			ok, err := c.store.CompareAndSwapState(ctx, key, rec.State, domain.AwaitingSpreadChoice())
			if err != nil {
				return c.failure(ev, err)
			}
			if !ok {
				continue
			}
			log.Info("reading started", "from", rec.State.String())
		}
		return reply(domain.SendChoicePrompt{Text: greetingText, Options: spreadOptions})
	}
	return c.failure(ev, domain.ErrContention)
}

func (c *Controller) handleButton(ctx context.Context, log *slog.Logger, key domain.SessionKey, control domain.Control) Outcome {
	ev := domain.ButtonPressed{ScopeID: key.GuildID, ActorID: key.UserID, OriginalRequesterID: key.UserID, Control: control}

	if spread, ok := control.Spread(); ok {
		rec, err := c.store.GetOrCreate(ctx, key)
		if err != nil {
			return c.failure(ev, err)
		}
		if rec.State != domain.Idle() && rec.State != domain.AwaitingSpreadChoice() {
			return stale()
		}
		return c.transition(ctx, log, ev, rec.State, domain.AwaitingQuestion(spread), questionForm())
	}

	switch control {
	case domain.ControlFollowUp:
		return c.transition(ctx, log, ev, domain.AwaitingFollowUpChoice(), domain.AwaitingQuestion(domain.SpreadUndetermined), questionForm())

	case domain.ControlEnd:
		ok, err := c.store.CompareAndSwapState(ctx, key, domain.AwaitingFollowUpChoice(), domain.Ended())
		if err != nil {
			return c.failure(ev, err)
		}
		if !ok {
			return stale()
		}
		log.Info("reading ended")

		out := reply(domain.EditMessage{Text: endedText, ClearAffordances: true})
		if err := c.store.Reset(ctx, key); err != nil {
			// the user saw the end; the next request restarts from Ended anyway
			out.Err = fmt.Errorf("%w: reset after end: %w", domain.ErrCollaboratorFailure, err)
		}
		return out
	}
	return stale()
}

func (c *Controller) transition(ctx context.Context, log *slog.Logger, ev domain.Event, from, to domain.InteractionState, action domain.Action) Outcome {
	ok, err := c.store.CompareAndSwapState(ctx, ev.Key(), from, to)
	if err != nil {
		return c.failure(ev, err)
	}
	if !ok {
		return stale()
	}
	log.Info("state changed", "from", from.String(), "to", to.String())
	return reply(action)
}

// submitQuestion claims the transition first so a duplicate submission is
// rejected while the model is still working. If anything fails before the
// reading is delivered, the claim is handed back, unless a newer submission
// has replaced it in the meantime.
func (c *Controller) submitQuestion(ctx context.Context, log *slog.Logger, key domain.SessionKey, question string) Outcome {
	ev := domain.ModalSubmitted{ScopeID: key.GuildID, ActorID: key.UserID, OriginalRequesterID: key.UserID, Control: domain.ControlQuestion}

	question = strings.TrimSpace(question)
	if question == "" {
		return reply(domain.SendEphemeralNotice{Text: emptyQuestionText})
	}

	rec, err := c.store.GetOrCreate(ctx, key)
	if err != nil {
		return c.failure(ev, err)
	}
	asking := rec.State
	if asking.Phase() != domain.PhaseAwaitingQuestion {
		return stale()
	}

	// the claim id doubles as the turn id; appending the turn completes it
	claimID := c.newID()
	ok, err := c.store.Claim(ctx, key, asking, domain.AwaitingFollowUpChoice(), claimID)
	if err != nil {
		return c.failure(ev, err)
	}
	if !ok {
		return stale()
	}

	giveBack := func(cause error) Outcome {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		restored, err := c.store.ReturnCards(rctx, key, claimID, domain.AwaitingFollowUpChoice(), asking)
		switch {
		case err != nil:
			log.Error("failed to restore question state", "error", err)
		case !restored:
			log.Info("claim superseded, leaving session as is")
		}
		return c.failure(ev, cause)
	}

	spread := asking.Spread()
	if spread == domain.SpreadUndetermined {
		spread = c.classify(ctx, log, rec.Context, question)
	}

	cards, err := c.store.DrawCards(ctx, key, int(spread))
	if err != nil {
		return giveBack(err)
	}

	images, missing, err := c.lookupImages(ctx, cards)
	if err != nil {
		return giveBack(err)
	}

	answer, err := c.ask(ctx, "interpret", interpretation.Build(rec.Context, question, cards))
	if err != nil {
		return giveBack(err)
	}

	out := reply(domain.SendReading{
		Text:        formatReading(cards, answer, missing),
		CardImages:  images,
		Affordances: followUpOptions,
	})

	turn := domain.Turn{ID: claimID, Question: question, Cards: cards, Interpretation: answer, At: c.now()}
	if err := c.store.AppendContext(ctx, key, turn); err != nil {
		// the reading is still worth delivering; only grounding is lost
		out.Err = fmt.Errorf("%w: append context: %w", domain.ErrCollaboratorFailure, err)
	}

	log.Info("reading delivered", "spread", int(spread), "cards", len(cards), "images", len(images))
	return out
}

// classify decides the spread of a follow-up. Any failure or unclear answer
// means a single card.
func (c *Controller) classify(ctx context.Context, log *slog.Logger, prior []domain.Turn, question string) domain.Spread {
	answer, err := c.ask(ctx, "classify", interpretation.ClassifySpread(prior, question))
	if err != nil {
		log.Warn("spread classification failed, using a single card", "error", err)
		return domain.SpreadSingle
	}
	return interpretation.ParseSpread(answer)
}

func (c *Controller) lookupImages(ctx context.Context, cards []domain.DrawnCard) (images []string, missing bool, err error) {
	if c.assets == nil {
		return nil, true, nil
	}
	for _, card := range cards {
		ref, ok, err := c.assets.Lookup(ctx, card.Card, card.Orientation)
		if err != nil {
			return nil, false, fmt.Errorf("image lookup %q: %w", card.Card.Name, err)
		}
		if !ok {
			missing = true
			continue
		}
		images = append(images, ref)
	}
	return images, missing, nil
}

func (c *Controller) ask(ctx context.Context, purpose string, req interpretation.Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "model."+purpose)
	defer span.End()

	conv, err := c.model.StartConversation(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	answer, err := conv.Send(ctx, req.Text)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (c *Controller) failure(ev domain.Event, err error) Outcome {
	out := Outcome{Err: fmt.Errorf("%w: %w", domain.ErrCollaboratorFailure, err)}
	if _, isText := ev.(domain.TextMessage); isText {
		out.Actions = []domain.Action{domain.SendText{Text: retryText}}
	} else {
		out.Actions = []domain.Action{domain.SendEphemeralNotice{Text: retryText}}
	}
	return out
}

func formatReading(cards []domain.DrawnCard, answer string, missingImages bool) string {
	var b strings.Builder
	b.WriteString("**Your cards:** ")
	for i, card := range cards {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(card.String())
	}
	b.WriteString("\n\n")
	b.WriteString(answer)
	if missingImages {
		b.WriteString("\n\n")
		b.WriteString(noImagesText)
	}
	return b.String()
}

func reply(actions ...domain.Action) Outcome {
	return Outcome{Actions: actions}
}

func unauthorized() Outcome {
	return Outcome{
		Actions: []domain.Action{domain.SendEphemeralNotice{Text: notYoursText}},
		Err:     domain.ErrUnauthorizedActor,
	}
}

func stale() Outcome {
	return Outcome{
		Actions: []domain.Action{domain.SendEphemeralNotice{Text: staleText}},
		Err:     domain.ErrInvalidTransition,
	}
}

func eventName(ev domain.Event) string {
	switch ev.(type) {
	case domain.TextMessage:
		return "text_message"
	case domain.ButtonPressed:
		return "button_pressed"
	case domain.ModalSubmitted:
		return "modal_submitted"
	}
	return "unknown"
}
