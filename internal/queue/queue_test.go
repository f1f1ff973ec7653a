package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := Message{Type: "qr_email", Body: []byte(`{"participant_id":"p1"}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := NewInMemory(0)
	if err := q.Publish(ctx, Message{Type: "qr_email"}); err == nil {
		t.Fatal("expected context error on full queue with cancelled context")
	}
}
