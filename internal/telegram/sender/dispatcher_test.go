package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDispatcherRunsQueuedJobs(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 8, Workers: 2})
	defer d.Close()

	var mu sync.Mutex
	ran := 0
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			mu.Lock()
			ran++
			if ran == 5 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued jobs never ran")
	}
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue after Close = %v, want ErrQueueClosed", err)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	defer d.Close()

	block := make(chan struct{})
	// Occupy the single worker, then saturate the queue.
	_ = d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		<-block
		return nil
	})

	var err error
	for i := 0; i < 4; i++ {
		err = d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
		if errors.Is(err, ErrQueueFull) {
			break
		}
	}
	close(block)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("saturated Enqueue = %v, want ErrQueueFull", err)
	}
}

func TestDispatcherCloseDuringEnqueue(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 64, Workers: 4})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
				if err != nil {
					if !errors.Is(err, ErrQueueClosed) && !errors.Is(err, ErrQueueFull) {
						t.Errorf("Enqueue: %v", err)
					}
					return
				}
			}
		}()
	}

	close(start)
	d.Close()
	wg.Wait()
}
