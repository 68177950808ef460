//go:build integration

package natsutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func natsURL() string {
	if v := os.Getenv("NATS_URL"); v != "" {
		return v
	}
	return nats.DefaultURL
}

func connectNATS(t *testing.T) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(natsURL())
	if err != nil {
		t.Fatalf("nats connect: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return nc
}

func TestNATS_PubSub(t *testing.T) {
	nc := connectNATS(t)

	type msg struct {
		Text string `json:"text"`
	}

	ch := make(chan msg, 1)
	sub, err := Subscribe(nc, "integ.pubsub", func(ctx context.Context, m msg) {
		ch <- m
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "integ.pubsub", msg{Text: "hello integration"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.Text != "hello integration" {
			t.Fatalf("expected 'hello integration', got %q", got.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNATS_PublishJS(t *testing.T) {
	nc := connectNATS(t)
	ctx := context.Background()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("JetStream: %v", err)
	}
	if _, err := js.CreateStream(ctx, jetstream.StreamConfig{Name: "INTEG_NOTIFY", Subjects: []string{"integ.notify.>"}}); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	t.Cleanup(func() { _ = js.DeleteStream(context.Background(), "INTEG_NOTIFY") })

	first, err := PublishJS(ctx, js, "integ.notify.t", map[string]string{"m": "1"})
	if err != nil {
		t.Fatalf("PublishJS: %v", err)
	}
	second, err := PublishJS(ctx, js, "integ.notify.t", map[string]string{"m": "1"})
	if err != nil {
		t.Fatalf("PublishJS: %v", err)
	}
	if second.Sequence <= first.Sequence {
		t.Fatalf("expected increasing sequences, got %d then %d", first.Sequence, second.Sequence)
	}
}
