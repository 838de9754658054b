// Package dialogue implements the multi-step conversations of the bot as an
// in-memory state machine keyed by conversation (chat) identifier. State is
// transient by design: a restart abandons every in-flight conversation, and a
// repeated start command overwrites a stale one.
package dialogue

// MessageRef identifies a sent message so it can be deleted later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// State is the closed set of dialogue states. A conversation with no state
// (nil) is idle.
type State interface {
	dialogueState()
}

// AwaitingTarget means the "who said it" keyboard has been sent and the
// engine waits for a button callback.
type AwaitingTarget struct {
	// Prompt is the keyboard message, deleted once a target is chosen.
	Prompt MessageRef
}

// AwaitingQuote means a target has been chosen and the engine waits for the
// quote as a free-text message.
type AwaitingQuote struct {
	Prompt MessageRef
	Target string
}

// CardMenu means the guest-card status message with its action buttons has
// been sent and the engine waits for a button callback.
type CardMenu struct {
	Prompt MessageRef
}

// CardAwaitingHolder means the engine waits for the new card holder's name as
// a free-text message.
type CardAwaitingHolder struct {
	Prompt MessageRef
}

func (AwaitingTarget) dialogueState()     {}
func (AwaitingQuote) dialogueState()      {}
func (CardMenu) dialogueState()           {}
func (CardAwaitingHolder) dialogueState() {}
