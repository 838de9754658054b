package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/clic-epfl/clicbot/internal/directory"
	"github.com/clic-epfl/clicbot/internal/logger"
	"github.com/clic-epfl/clicbot/internal/quiz"
)

// Callback actions used on inline keyboards sent by the engine. They are the
// join keys between sent keyboards and the callback router.
const (
	ActionQuizTarget = "quiz_target"
	ActionCard       = "card_action"
)

const (
	promptTarget = "Qui l'a dit ?"
	promptQuote  = "Qu'a-t'il/elle dit ?"
)

// Button is one inline keyboard button: a visible label and the callback
// payload it produces.
type Button struct {
	Label string
	Data  string
}

// Transport is the outbound side of the messaging platform as seen by the
// engine. Deletions are best-effort; send failures abort the current step.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) (MessageRef, error)
	SendChoice(ctx context.Context, chatID int64, text, action string, buttons []Button) (MessageRef, error)
	SendQuiz(ctx context.Context, chatID int64, question string, options []string, correctIndex int) error
	Delete(ctx context.Context, ref MessageRef) error
}

// Roster provides the committee roster held by the external directory.
type Roster interface {
	Members(ctx context.Context) ([]directory.Member, error)
	SaveMembers(ctx context.Context, members []directory.Member)
}

// CardLedger persists who currently holds the guest card.
type CardLedger interface {
	Holder(ctx context.Context) (string, error)
	SetHolder(ctx context.Context, holder string) error
}

// Engine drives the bot's multi-step conversations.
type Engine struct {
	store     *Store
	transport Transport
	roster    Roster
	cards     CardLedger
	rng       *rand.Rand
	log       *slog.Logger
}

// Option customises engine construction.
type Option func(*Engine)

// WithRand injects a deterministic random source for tests. The source is
// used without additional locking, so it is only safe when events arrive from
// a single goroutine.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// NewEngine builds an engine on top of the given collaborators.
func NewEngine(transport Transport, roster Roster, cards CardLedger, opts ...Option) *Engine {
	e := &Engine{
		store:     NewStore(),
		transport: transport,
		roster:    roster,
		cards:     cards,
		log:       logger.Component("dialogue"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InProgress reports whether the conversation has an active dialogue.
func (e *Engine) InProgress(convID int64) bool {
	return e.store.InProgress(convID)
}

// StartQuiz begins the quote-quiz dialogue: it removes the triggering command
// message, fetches the roster and sends the target keyboard. A failed roster
// fetch aborts the transition and leaves the conversation state untouched. A
// stale dialogue for the same conversation is overwritten.
func (e *Engine) StartQuiz(ctx context.Context, convID int64, trigger MessageRef) error {
	e.deleteQuiet(ctx, trigger)

	var err error
	e.store.With(convID, func(current State) State {
		members, ferr := e.roster.Members(ctx)
		if ferr != nil {
			e.logError(ctx, "quiz.roster_fetch", ferr)
			return current
		}

		buttons := make([]Button, 0, len(members))
		for _, m := range members {
			buttons = append(buttons, Button{Label: m.Name, Data: m.Name})
		}

		prompt, serr := e.transport.SendChoice(ctx, convID, promptTarget, ActionQuizTarget, buttons)
		if serr != nil {
			err = fmt.Errorf("send target prompt: %w", serr)
			return current
		}
		return AwaitingTarget{Prompt: prompt}
	})
	return err
}

// ChooseTarget handles a target-selection callback. It is a no-op unless the
// conversation is waiting for a target.
func (e *Engine) ChooseTarget(ctx context.Context, convID int64, target string) error {
	var err error
	e.store.With(convID, func(current State) State {
		st, ok := current.(AwaitingTarget)
		if !ok {
			e.logSkip(ctx, convID, current, "target callback")
			return current
		}

		e.deleteQuiet(ctx, st.Prompt)

		prompt, serr := e.transport.SendText(ctx, convID, promptQuote)
		if serr != nil {
			// The target keyboard is already gone; nothing sensible is
			// left to wait for.
			err = fmt.Errorf("send quote prompt: %w", serr)
			return nil
		}
		return AwaitingQuote{Prompt: prompt, Target: target}
	})
	return err
}

// SubmitQuote handles the free-text quote, publishes the quiz poll and
// updates the target's selection counter. It is a no-op unless the
// conversation is waiting for a quote. The poll is sent before the roster
// write completes; the write is fire-and-forget with per-member failure
// logging.
func (e *Engine) SubmitQuote(ctx context.Context, convID int64, quote string, quoteMsg MessageRef) error {
	var err error
	e.store.With(convID, func(current State) State {
		st, ok := current.(AwaitingQuote)
		if !ok {
			e.logSkip(ctx, convID, current, "quote message")
			return current
		}

		e.deleteQuiet(ctx, st.Prompt)
		e.deleteQuiet(ctx, quoteMsg)

		members, ferr := e.roster.Members(ctx)
		if ferr != nil {
			e.logError(ctx, "quiz.roster_fetch", ferr)
			return current
		}

		names := make([]string, 0, len(members))
		for _, m := range members {
			names = append(names, m.Name)
		}

		set, serr := quiz.Split(names, st.Target, quiz.MaxOptions, e.rng)
		if serr != nil {
			e.logError(ctx, "quiz.split", serr)
			if _, terr := e.transport.SendText(ctx, convID,
				fmt.Sprintf("%s ne fait plus partie du comité, sondage annulé", st.Target)); terr != nil {
				e.logError(ctx, "quiz.notice", terr)
			}
			return nil
		}

		question := fmt.Sprintf("Qui a dit: %q ?", quote)
		if perr := e.transport.SendQuiz(ctx, convID, question, set.Options, set.CorrectIndex); perr != nil {
			err = fmt.Errorf("send quiz poll: %w", perr)
			return current
		}

		for i := range members {
			if members[i].Name == st.Target {
				members[i].PollCount++
			}
		}
		go e.roster.SaveMembers(context.WithoutCancel(ctx), members)

		e.log.LogAttrs(ctx, slog.LevelInfo, "quiz.published",
			slog.String("status", "ok"),
			slog.Int64("chat_id", convID),
			slog.String("target", st.Target),
			slog.Int("options", len(set.Options)),
		)
		return nil
	})
	return err
}

// HandleText feeds a free-text message into whichever dialogue is waiting
// for one. Text arriving with no active dialogue, or for a dialogue waiting
// on a callback, is ignored.
func (e *Engine) HandleText(ctx context.Context, convID int64, text string, msg MessageRef) error {
	switch e.store.Get(convID).(type) {
	case AwaitingQuote:
		return e.SubmitQuote(ctx, convID, text, msg)
	case CardAwaitingHolder:
		return e.SubmitCardHolder(ctx, convID, text, msg)
	default:
		return nil
	}
}

func (e *Engine) deleteQuiet(ctx context.Context, ref MessageRef) {
	if ref.MessageID == 0 {
		return
	}
	if err := e.transport.Delete(ctx, ref); err != nil {
		e.log.LogAttrs(ctx, slog.LevelWarn, "message.delete",
			slog.String("status", "fail"),
			slog.Int64("chat_id", ref.ChatID),
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) logError(ctx context.Context, event string, err error) {
	e.log.LogAttrs(ctx, slog.LevelError, event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
}

func (e *Engine) logSkip(ctx context.Context, convID int64, current State, kind string) {
	e.log.LogAttrs(ctx, slog.LevelDebug, "event.skip",
		slog.String("status", "skip"),
		slog.Int64("chat_id", convID),
		slog.String("state", stateName(current)),
		slog.String("got", kind),
	)
}

func stateName(s State) string {
	switch s.(type) {
	case nil:
		return "idle"
	case AwaitingTarget:
		return "awaiting_target"
	case AwaitingQuote:
		return "awaiting_quote"
	case CardMenu:
		return "card_menu"
	case CardAwaitingHolder:
		return "card_awaiting_holder"
	default:
		return "unknown"
	}
}
