package dialogue

import (
	"context"
	"fmt"

	"github.com/clic-epfl/clicbot/internal/storage"
)

// Card callback payloads.
const (
	CardGive   = "give"
	CardReturn = "return"
	CardCancel = "cancel"
)

const promptCardHolder = "À qui est confiée la carte ?"

// StartCard begins the guest-card dialogue: it shows where the card
// currently is and offers the give/return/cancel menu. A failed ledger read
// aborts the transition and leaves the conversation state untouched.
func (e *Engine) StartCard(ctx context.Context, convID int64, trigger MessageRef) error {
	e.deleteQuiet(ctx, trigger)

	var err error
	e.store.With(convID, func(current State) State {
		holder, herr := e.cards.Holder(ctx)
		if herr != nil {
			e.logError(ctx, "card.holder_read", herr)
			return current
		}

		var status string
		if holder == storage.CardAtOffice {
			status = "La carte invité est au bureau."
		} else {
			status = fmt.Sprintf("La carte invité est chez %s.", holder)
		}

		buttons := []Button{
			{Label: "Donner", Data: CardGive},
			{Label: "Rendre", Data: CardReturn},
			{Label: "Annuler", Data: CardCancel},
		}
		prompt, serr := e.transport.SendChoice(ctx, convID, status, ActionCard, buttons)
		if serr != nil {
			err = fmt.Errorf("send card menu: %w", serr)
			return current
		}
		return CardMenu{Prompt: prompt}
	})
	return err
}

// HandleCardAction handles a card-menu callback. It is a no-op unless the
// conversation is showing the card menu.
func (e *Engine) HandleCardAction(ctx context.Context, convID int64, action string) error {
	var err error
	e.store.With(convID, func(current State) State {
		st, ok := current.(CardMenu)
		if !ok {
			e.logSkip(ctx, convID, current, "card callback")
			return current
		}

		e.deleteQuiet(ctx, st.Prompt)

		switch action {
		case CardGive:
			prompt, serr := e.transport.SendText(ctx, convID, promptCardHolder)
			if serr != nil {
				err = fmt.Errorf("send holder prompt: %w", serr)
				return nil
			}
			return CardAwaitingHolder{Prompt: prompt}

		case CardReturn:
			if werr := e.cards.SetHolder(ctx, storage.CardAtOffice); werr != nil {
				e.logError(ctx, "card.holder_write", werr)
				err = werr
				return nil
			}
			e.notify(ctx, convID, "La carte invité est de retour au bureau.")
			return nil

		case CardCancel:
			return nil

		default:
			e.logSkip(ctx, convID, current, "card callback "+action)
			return nil
		}
	})
	return err
}

// SubmitCardHolder records the free-text name of the new card holder.
func (e *Engine) SubmitCardHolder(ctx context.Context, convID int64, holder string, msg MessageRef) error {
	var err error
	e.store.With(convID, func(current State) State {
		st, ok := current.(CardAwaitingHolder)
		if !ok {
			e.logSkip(ctx, convID, current, "holder message")
			return current
		}

		e.deleteQuiet(ctx, st.Prompt)
		e.deleteQuiet(ctx, msg)

		if werr := e.cards.SetHolder(ctx, holder); werr != nil {
			e.logError(ctx, "card.holder_write", werr)
			err = werr
			return nil
		}
		e.notify(ctx, convID, fmt.Sprintf("La carte invité est confiée à %s.", holder))
		return nil
	})
	return err
}

func (e *Engine) notify(ctx context.Context, convID int64, text string) {
	if _, serr := e.transport.SendText(ctx, convID, text); serr != nil {
		e.logError(ctx, "card.notice", serr)
	}
}
