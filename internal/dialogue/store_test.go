package dialogue

import (
	"sync"
	"testing"
)

func TestStoreStateTransitions(t *testing.T) {
	s := NewStore()

	if s.InProgress(1) {
		t.Error("fresh store reports dialogue in progress")
	}

	s.With(1, func(cur State) State {
		if cur != nil {
			t.Errorf("initial state = %T, want nil", cur)
		}
		return AwaitingTarget{Prompt: MessageRef{ChatID: 1, MessageID: 10}}
	})
	if !s.InProgress(1) {
		t.Error("dialogue should be in progress")
	}
	if s.InProgress(2) {
		t.Error("other conversation affected")
	}

	s.With(1, func(State) State { return nil })
	if s.InProgress(1) {
		t.Error("reset did not clear dialogue")
	}
}

func TestStoreSerializesSameConversation(t *testing.T) {
	s := NewStore()
	const workers = 16

	// Each worker increments a counter smuggled through the state. Any lost
	// update means two transitions ran concurrently.
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.With(7, func(cur State) State {
				c, _ := cur.(CardAwaitingHolder)
				return CardAwaitingHolder{Prompt: MessageRef{ChatID: 7, MessageID: c.Prompt.MessageID + 1}}
			})
		}()
	}
	wg.Wait()

	st, ok := s.Get(7).(CardAwaitingHolder)
	if !ok {
		t.Fatalf("final state = %T", s.Get(7))
	}
	if st.Prompt.MessageID != workers {
		t.Errorf("transitions applied = %d, want %d", st.Prompt.MessageID, workers)
	}
}
