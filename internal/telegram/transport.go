package telegram

import (
	"context"
	"strconv"

	"github.com/clic-epfl/clicbot/internal/dialogue"
	"github.com/clic-epfl/clicbot/internal/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

const buttonsPerRow = 3

// BotTransport adapts a telebot bot to the dialogue engine's outbound
// interface. Sends are synchronous: the engine needs the message reference
// back before it commits a state transition.
type BotTransport struct {
	bot *tele.Bot
}

// NewBotTransport wraps the given bot.
func NewBotTransport(bot *tele.Bot) *BotTransport {
	return &BotTransport{bot: bot}
}

func (t *BotTransport) SendText(_ context.Context, chatID int64, text string) (dialogue.MessageRef, error) {
	msg, err := t.bot.Send(tele.ChatID(chatID), text)
	if err != nil {
		return dialogue.MessageRef{}, err
	}
	return refOf(msg), nil
}

func (t *BotTransport) SendChoice(_ context.Context, chatID int64, text, action string, buttons []dialogue.Button) (dialogue.MessageRef, error) {
	btns := make([]keyboard.InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, keyboard.InlineBtn{Text: b.Label, Unique: action, Data: b.Data})
	}
	markup := keyboard.InlineButtonsNPerRow(btns, buttonsPerRow)

	msg, err := t.bot.Send(tele.ChatID(chatID), text, markup)
	if err != nil {
		return dialogue.MessageRef{}, err
	}
	return refOf(msg), nil
}

func (t *BotTransport) SendQuiz(_ context.Context, chatID int64, question string, options []string, correctIndex int) error {
	_, err := t.bot.Send(tele.ChatID(chatID), quizPoll(question, options, correctIndex))
	return err
}

// quizPoll builds a non-anonymous quiz poll; votes stay visible so the group
// sees who guessed right.
func quizPoll(question string, options []string, correctIndex int) *tele.Poll {
	poll := &tele.Poll{
		Type:          tele.PollQuiz,
		Question:      question,
		CorrectOption: correctIndex,
	}
	poll.AddOptions(options...)
	return poll
}

func (t *BotTransport) Delete(_ context.Context, ref dialogue.MessageRef) error {
	return t.bot.Delete(tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	})
}

func refOf(msg *tele.Message) dialogue.MessageRef {
	if msg == nil || msg.Chat == nil {
		return dialogue.MessageRef{}
	}
	return dialogue.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

// MessageRefOf extracts a dialogue reference from an incoming message.
func MessageRefOf(c tele.Context) dialogue.MessageRef {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return dialogue.MessageRef{}
	}
	return dialogue.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}
