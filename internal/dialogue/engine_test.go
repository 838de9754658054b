package dialogue

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/clic-epfl/clicbot/internal/directory"
	"github.com/clic-epfl/clicbot/internal/storage"
)

type sentChoice struct {
	Text    string
	Action  string
	Buttons []Button
}

type sentQuiz struct {
	Question     string
	Options      []string
	CorrectIndex int
}

type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	texts   []string
	choices []sentChoice
	quizzes []sentQuiz
	deleted []MessageRef

	failText   bool
	failChoice bool
	failQuiz   bool
}

func (t *fakeTransport) ref(chatID int64) MessageRef {
	t.nextID++
	return MessageRef{ChatID: chatID, MessageID: t.nextID}
}

func (t *fakeTransport) SendText(_ context.Context, chatID int64, text string) (MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failText {
		return MessageRef{}, errors.New("send failed")
	}
	t.texts = append(t.texts, text)
	return t.ref(chatID), nil
}

func (t *fakeTransport) SendChoice(_ context.Context, chatID int64, text, action string, buttons []Button) (MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failChoice {
		return MessageRef{}, errors.New("send failed")
	}
	t.choices = append(t.choices, sentChoice{Text: text, Action: action, Buttons: buttons})
	return t.ref(chatID), nil
}

func (t *fakeTransport) SendQuiz(_ context.Context, _ int64, question string, options []string, correctIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failQuiz {
		return errors.New("send failed")
	}
	t.quizzes = append(t.quizzes, sentQuiz{Question: question, Options: options, CorrectIndex: correctIndex})
	return nil
}

func (t *fakeTransport) Delete(_ context.Context, ref MessageRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, ref)
	return nil
}

type fakeRoster struct {
	mu      sync.Mutex
	members []directory.Member
	failGet bool
	saved   chan []directory.Member
}

func newFakeRoster(names ...string) *fakeRoster {
	r := &fakeRoster{saved: make(chan []directory.Member, 1)}
	for i, n := range names {
		r.members = append(r.members, directory.Member{ID: i + 1, Name: n})
	}
	return r
}

func (r *fakeRoster) Members(context.Context) ([]directory.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet {
		return nil, errors.New("directory unreachable")
	}
	out := make([]directory.Member, len(r.members))
	copy(out, r.members)
	return out, nil
}

func (r *fakeRoster) SaveMembers(_ context.Context, members []directory.Member) {
	r.saved <- members
}

type fakeLedger struct {
	holder  string
	failGet bool
	failSet bool
}

func (l *fakeLedger) Holder(context.Context) (string, error) {
	if l.failGet {
		return "", errors.New("ledger read failed")
	}
	return l.holder, nil
}

func (l *fakeLedger) SetHolder(_ context.Context, holder string) error {
	if l.failSet {
		return errors.New("ledger write failed")
	}
	l.holder = holder
	return nil
}

func newTestEngine(t *fakeTransport, r *fakeRoster, l *fakeLedger) *Engine {
	return NewEngine(t, r, l, WithRand(rand.New(rand.NewSource(42))))
}

func TestStartQuizSendsTargetKeyboard(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(tr, newFakeRoster("Alice", "Bob", "Carol"), &fakeLedger{})

	if err := e.StartQuiz(context.Background(), 7, MessageRef{ChatID: 7, MessageID: 100}); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if len(tr.choices) != 1 {
		t.Fatalf("expected 1 keyboard, got %d", len(tr.choices))
	}
	c := tr.choices[0]
	if c.Action != ActionQuizTarget {
		t.Errorf("action = %q", c.Action)
	}
	if len(c.Buttons) != 3 {
		t.Errorf("expected 3 buttons, got %d", len(c.Buttons))
	}
	if !e.InProgress(7) {
		t.Error("expected dialogue in progress")
	}
	if len(tr.deleted) != 1 || tr.deleted[0].MessageID != 100 {
		t.Errorf("trigger message not removed: %v", tr.deleted)
	}
}

func TestStartQuizRosterFailureLeavesIdle(t *testing.T) {
	tr := &fakeTransport{}
	roster := newFakeRoster("Alice")
	roster.failGet = true
	e := newTestEngine(tr, roster, &fakeLedger{})

	if err := e.StartQuiz(context.Background(), 7, MessageRef{}); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if len(tr.choices) != 0 {
		t.Errorf("expected no keyboard, got %d", len(tr.choices))
	}
	if e.InProgress(7) {
		t.Error("expected conversation to remain idle")
	}
}

func TestCallbackIgnoredWhenIdle(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(tr, newFakeRoster("Alice"), &fakeLedger{})

	if err := e.ChooseTarget(context.Background(), 7, "Alice"); err != nil {
		t.Fatalf("ChooseTarget: %v", err)
	}
	if len(tr.texts) != 0 || len(tr.quizzes) != 0 {
		t.Error("idle callback must not produce messages")
	}
}

func TestCallbackIgnoredWhileAwaitingQuote(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(tr, newFakeRoster("Alice", "Bob"), &fakeLedger{})
	ctx := context.Background()

	if err := e.StartQuiz(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseTarget(ctx, 7, "Bob"); err != nil {
		t.Fatal(err)
	}
	before := len(tr.texts)
	if err := e.ChooseTarget(ctx, 7, "Alice"); err != nil {
		t.Fatal(err)
	}
	if len(tr.texts) != before {
		t.Error("stray callback must be ignored while awaiting quote")
	}
	if _, ok := e.store.Get(7).(AwaitingQuote); !ok {
		t.Errorf("state changed by stray callback: %T", e.store.Get(7))
	}
}

func TestQuizEndToEnd(t *testing.T) {
	tr := &fakeTransport{}
	roster := newFakeRoster("Alice", "Bob", "Carol")
	e := newTestEngine(tr, roster, &fakeLedger{})
	ctx := context.Background()

	if err := e.StartQuiz(ctx, 7, MessageRef{ChatID: 7, MessageID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseTarget(ctx, 7, "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := e.HandleText(ctx, 7, "it compiles", MessageRef{ChatID: 7, MessageID: 2}); err != nil {
		t.Fatal(err)
	}

	if len(tr.quizzes) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(tr.quizzes))
	}
	q := tr.quizzes[0]
	if q.Question != `Qui a dit: "it compiles" ?` {
		t.Errorf("question = %q", q.Question)
	}
	if len(q.Options) != 3 {
		t.Errorf("expected full roster as options, got %v", q.Options)
	}
	if q.Options[q.CorrectIndex] != "Bob" {
		t.Errorf("correct option = %q", q.Options[q.CorrectIndex])
	}
	if e.InProgress(7) {
		t.Error("dialogue should be over")
	}

	select {
	case saved := <-roster.saved:
		for _, m := range saved {
			want := 0
			if m.Name == "Bob" {
				want = 1
			}
			if m.PollCount != want {
				t.Errorf("%s poll_count = %d, want %d", m.Name, m.PollCount, want)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("roster update never saved")
	}
}

func TestSubmitQuoteTargetLeftRoster(t *testing.T) {
	tr := &fakeTransport{}
	roster := newFakeRoster("Alice", "Bob")
	e := newTestEngine(tr, roster, &fakeLedger{})
	ctx := context.Background()

	if err := e.StartQuiz(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseTarget(ctx, 7, "Bob"); err != nil {
		t.Fatal(err)
	}

	// Bob leaves between target selection and quote submission.
	roster.mu.Lock()
	roster.members = roster.members[:1]
	roster.mu.Unlock()

	if err := e.HandleText(ctx, 7, "something", MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if len(tr.quizzes) != 0 {
		t.Error("no quiz expected for a departed target")
	}
	if e.InProgress(7) {
		t.Error("dialogue should be abandoned")
	}
}

func TestChooseTargetSendFailureResetsIdle(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(tr, newFakeRoster("Alice", "Bob"), &fakeLedger{})
	ctx := context.Background()

	if err := e.StartQuiz(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	tr.failText = true
	if err := e.ChooseTarget(ctx, 7, "Bob"); err == nil {
		t.Fatal("expected send error")
	}
	if e.InProgress(7) {
		t.Error("failed quote prompt must abandon the dialogue")
	}

	// Once abandoned, a late quote message is a no-op.
	tr.failText = false
	if err := e.HandleText(ctx, 7, "stale", MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if len(tr.quizzes) != 0 {
		t.Error("no quiz expected after an abandoned dialogue")
	}
}

func TestSubmitQuoteSendFailureKeepsState(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(tr, newFakeRoster("Alice", "Bob"), &fakeLedger{})
	ctx := context.Background()

	if err := e.StartQuiz(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseTarget(ctx, 7, "Bob"); err != nil {
		t.Fatal(err)
	}

	tr.failQuiz = true
	if err := e.HandleText(ctx, 7, "retry me", MessageRef{}); err == nil {
		t.Fatal("expected send error")
	}
	if _, ok := e.store.Get(7).(AwaitingQuote); !ok {
		t.Errorf("state after failed publish: %T", e.store.Get(7))
	}
}

func TestConversationsAreIndependent(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(tr, newFakeRoster("Alice", "Bob"), &fakeLedger{})
	ctx := context.Background()

	if err := e.StartQuiz(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if e.InProgress(8) {
		t.Error("chat 8 must not see chat 7's dialogue")
	}
	if err := e.ChooseTarget(ctx, 8, "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.store.Get(7).(AwaitingTarget); !ok {
		t.Errorf("chat 7 state disturbed: %T", e.store.Get(7))
	}
}

func TestCardGiveFlow(t *testing.T) {
	tr := &fakeTransport{}
	ledger := &fakeLedger{holder: storage.CardAtOffice}
	e := newTestEngine(tr, newFakeRoster(), ledger)
	ctx := context.Background()

	if err := e.StartCard(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if len(tr.choices) != 1 {
		t.Fatalf("expected card menu, got %d keyboards", len(tr.choices))
	}
	if tr.choices[0].Text != "La carte invité est au bureau." {
		t.Errorf("status = %q", tr.choices[0].Text)
	}

	if err := e.HandleCardAction(ctx, 7, CardGive); err != nil {
		t.Fatal(err)
	}
	if err := e.HandleText(ctx, 7, "Dana", MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if ledger.holder != "Dana" {
		t.Errorf("holder = %q, want Dana", ledger.holder)
	}
	if e.InProgress(7) {
		t.Error("dialogue should be over")
	}
}

func TestCardReturnAndCancel(t *testing.T) {
	tr := &fakeTransport{}
	ledger := &fakeLedger{holder: "Dana"}
	e := newTestEngine(tr, newFakeRoster(), ledger)
	ctx := context.Background()

	if err := e.StartCard(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if tr.choices[0].Text != "La carte invité est chez Dana." {
		t.Errorf("status = %q", tr.choices[0].Text)
	}
	if err := e.HandleCardAction(ctx, 7, CardReturn); err != nil {
		t.Fatal(err)
	}
	if ledger.holder != storage.CardAtOffice {
		t.Errorf("holder = %q after return", ledger.holder)
	}

	if err := e.StartCard(ctx, 7, MessageRef{}); err != nil {
		t.Fatal(err)
	}
	if err := e.HandleCardAction(ctx, 7, CardCancel); err != nil {
		t.Fatal(err)
	}
	if e.InProgress(7) {
		t.Error("cancel should end the dialogue")
	}
}
