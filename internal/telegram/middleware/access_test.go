package middleware

import (
	"context"
	"fmt"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type fakeAccess struct {
	admins map[string]bool
	grants map[string]bool
}

func (f *fakeAccess) IsAdmin(_ context.Context, identity string) bool {
	return f.admins[identity]
}

func (f *fakeAccess) IsAuthorized(_ context.Context, chatID int64, command string) bool {
	return f.grants[fmt.Sprintf("%d/%s", chatID, command)]
}

// gateContext fakes the few tele.Context methods the access gates touch.
// Everything else panics through the embedded nil interface.
type gateContext struct {
	tele.Context
	sender *tele.User
	chat   *tele.Chat
	store  map[string]any
	sent   []string
}

func newGateContext(userID, chatID int64) *gateContext {
	return &gateContext{
		sender: &tele.User{ID: userID},
		chat:   &tele.Chat{ID: chatID},
		store:  make(map[string]any),
	}
}

func (c *gateContext) Update() tele.Update { return tele.Update{ID: 1} }
func (c *gateContext) Sender() *tele.User  { return c.sender }
func (c *gateContext) Chat() *tele.Chat    { return c.chat }
func (c *gateContext) Get(key string) any  { return c.store[key] }
func (c *gateContext) Set(key string, v any) {
	c.store[key] = v
}

func (c *gateContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	}
	return nil
}

func TestAdminOnlyRefusesSilently(t *testing.T) {
	access := &fakeAccess{admins: map[string]bool{"42": true}}
	nextCalled := false
	h := AdminOnlyMiddleware(access)(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := newGateContext(7, 100)
	if err := h(c); err != nil {
		t.Fatalf("refusal must not error: %v", err)
	}
	if nextCalled {
		t.Error("non-admin reached the handler")
	}
	if len(c.sent) != 0 {
		t.Errorf("refusal must be silent, sent %v", c.sent)
	}
}

func TestAdminOnlyAllowsAdmin(t *testing.T) {
	access := &fakeAccess{admins: map[string]bool{"42": true}}
	nextCalled := false
	h := AdminOnlyMiddleware(access)(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	if err := h(newGateContext(42, 100)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !nextCalled {
		t.Error("admin blocked")
	}
}

func TestAuthorizedChatRejectsWithSingleMessage(t *testing.T) {
	access := &fakeAccess{grants: map[string]bool{"100/poll": true}}
	nextCalled := false
	h := AuthorizedChatMiddleware(access, "poll")(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := newGateContext(42, 200)
	if err := h(c); err != nil {
		t.Fatalf("rejection must not error: %v", err)
	}
	if nextCalled {
		t.Error("ungranted chat reached the handler")
	}
	if len(c.sent) != 1 {
		t.Fatalf("expected exactly 1 rejection message, got %d", len(c.sent))
	}
	if c.sent[0] != rejectUnauthorized {
		t.Errorf("rejection text = %q", c.sent[0])
	}
}

func TestAuthorizedChatAllowsGrantedChat(t *testing.T) {
	access := &fakeAccess{grants: map[string]bool{"100/poll": true}}
	nextCalled := false
	h := AuthorizedChatMiddleware(access, "poll")(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := newGateContext(42, 100)
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !nextCalled {
		t.Error("granted chat blocked")
	}
	if len(c.sent) != 0 {
		t.Errorf("unexpected messages: %v", c.sent)
	}
}
