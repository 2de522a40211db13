package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type pair struct {
	ssid     string
	password string
}

func TestSlot_EmptyGet(t *testing.T) {
	s := New[pair]()
	if _, ok := s.Get(); ok {
		t.Error("new slot should be empty")
	}
}

func TestSlot_LastWriteWins(t *testing.T) {
	s := New[pair]()
	s.Put(pair{"A", "a-pass"})
	s.Put(pair{"B", "b-pass"})

	got, ok := s.Get()
	if !ok {
		t.Fatal("slot should be filled")
	}
	if got.ssid != "B" || got.password != "b-pass" {
		t.Errorf("Get() = %+v, want B", got)
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}

	waited, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if waited.ssid != "B" {
		t.Errorf("Wait() = %+v, want B", waited)
	}
}

func TestSlot_WaitWakesOnPut(t *testing.T) {
	s := New[pair]()

	done := make(chan pair, 1)
	go func() {
		v, err := s.Wait(context.Background())
		if err == nil {
			done <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	s.Put(pair{"Home", "secret123"})

	select {
	case v := <-done:
		if v.ssid != "Home" {
			t.Errorf("Wait() = %+v, want Home", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Put")
	}
}

func TestSlot_WaitContextCancelled(t *testing.T) {
	s := New[pair]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestSlot_NeverClearedAfterFill(t *testing.T) {
	s := New[pair]()
	s.Put(pair{"Home", "x"})

	for i := 0; i < 3; i++ {
		if _, ok := s.Get(); !ok {
			t.Fatalf("slot emptied after read %d", i)
		}
	}
	select {
	case <-s.Ready():
	default:
		t.Error("Ready() should be closed")
	}
}

func TestSlot_ConcurrentPuts(t *testing.T) {
	s := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Put(i)
		}(i)
	}
	wg.Wait()

	if s.Writes() != 50 {
		t.Errorf("Writes() = %d, want 50", s.Writes())
	}
	if _, ok := s.Get(); !ok {
		t.Error("slot should be filled")
	}
}
