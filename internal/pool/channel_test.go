package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChannelFIFO(t *testing.T) {
	for _, capacity := range []int{0, 4} {
		ch := NewChannel[int](capacity)
		ctx := testCtx(t)
		for i := 0; i < 4; i++ {
			if err := ch.Send(ctx, i); err != nil {
				t.Fatalf("cap=%d send %d: %v", capacity, i, err)
			}
		}
		if ch.Len() != 4 {
			t.Fatalf("cap=%d len=%d", capacity, ch.Len())
		}
		for i := 0; i < 4; i++ {
			v, err := ch.Recv(ctx)
			if err != nil || v != i {
				t.Fatalf("cap=%d recv=%d,%v want %d", capacity, v, err, i)
			}
		}
	}
}

func TestChannelCloseDrainsThenFails(t *testing.T) {
	for _, capacity := range []int{0, 2} {
		ch := NewChannel[string](capacity)
		ctx := testCtx(t)
		_ = ch.Send(ctx, "a")
		_ = ch.Close()
		_ = ch.Close()
		if err := ch.Send(ctx, "b"); !errors.Is(err, ErrChannelClosed) {
			t.Fatalf("cap=%d send after close: %v", capacity, err)
		}
		if v, err := ch.Recv(ctx); err != nil || v != "a" {
			t.Fatalf("cap=%d drain: %q %v", capacity, v, err)
		}
		if _, err := ch.Recv(ctx); !errors.Is(err, ErrChannelClosed) {
			t.Fatalf("cap=%d recv after drain: %v", capacity, err)
		}
	}
}

func TestChannelRecvHonoursContext(t *testing.T) {
	for _, capacity := range []int{0, 1} {
		ch := NewChannel[int](capacity)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := ch.Recv(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("cap=%d: %v", capacity, err)
		}
	}
}

func TestBoundedChannelSendBlocksWhenFull(t *testing.T) {
	ch := NewChannel[int](1)
	if err := ch.Send(testCtx(t), 1); err != nil {
		t.Fatalf("send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ch.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestUnboundedRecvWakesOnSend(t *testing.T) {
	ch := NewChannel[int](0)
	got := make(chan int, 1)
	go func() {
		v, _ := ch.Recv(context.Background())
		got <- v
	}()
	time.Sleep(10 * time.Millisecond)
	_ = ch.Send(context.Background(), 7)
	select {
	case v := <-got:
		if v != 7 {
			t.Fatalf("got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("receiver not woken")
	}
}

func TestUnboundedRecvWakesOnClose(t *testing.T) {
	ch := NewChannel[int](0)
	done := make(chan error, 1)
	go func() {
		_, err := ch.Recv(context.Background())
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	_ = ch.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrChannelClosed) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("receiver not woken by close")
	}
}

func TestStopSignal(t *testing.T) {
	s := NewStopSignal(nil)
	if s.Raised() {
		t.Fatalf("fresh signal raised")
	}
	s.Raise()
	s.Raise()
	if !s.Raised() {
		t.Fatalf("signal not raised")
	}
	select {
	case <-s.Done():
	default:
		t.Fatalf("done not closed")
	}

	parent, cancel := context.WithCancel(context.Background())
	child := NewStopSignal(parent)
	cancel()
	if !child.Raised() {
		t.Fatalf("parent cancel should raise signal")
	}
}
