package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	a, ac := context.WithCancel(context.Background())
	b, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancelJ := joinContexts(a, b)
	defer cancelJ()
	ac()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel when first parent canceled")
	}
}

type ctxKey struct{}

func TestJoinContexts_KeepsRequestValuesAndCancellation(t *testing.T) {
	req, cancelReq := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	j, cancelJ := joinContexts(context.Background(), req)
	defer cancelJ()
	if got := j.Value(ctxKey{}); got != "req-1" {
		t.Fatalf("value=%v", got)
	}
	cancelReq()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not follow the request")
	}
}

func TestRequestContext_BaseCancelAndTimeout(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(context.Background())

	r := httptest.NewRequest("POST", "/workers/x/generate", nil)
	ctx, cancel := requestContext(r, 0)
	defer cancel()
	cancelBase()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("request context survived base cancellation")
	}

	SetBaseContext(context.Background())
	ctx2, cancel2 := requestContext(r, 20*time.Millisecond)
	defer cancel2()
	select {
	case <-ctx2.Done():
		if ctx2.Err() != context.DeadlineExceeded {
			t.Fatalf("err=%v want deadline exceeded", ctx2.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout not applied")
	}
}
