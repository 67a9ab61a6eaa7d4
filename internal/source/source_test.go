package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	msgs []kafka.Message
	i    int
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.i >= len(f.msgs) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[f.i]
	f.i++
	return m, nil
}

func (f *fakeReader) Close() error { return nil }

func kafkaMsg(t *testing.T, a Activity) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: raw}
}

func TestKafkaFetchFiltersAndDrains(t *testing.T) {
	now := time.Now().UTC()
	c := NewKafkaConnector("localhost:9092", "chat-activity", "leadscout")
	c.pollTimeout = 50 * time.Millisecond
	c.newReader = func() messageReader {
		return &fakeReader{msgs: []kafka.Message{
			kafkaMsg(t, Activity{ChatID: "chat-1", UserID: "u1", MessageText: "hi", SentAt: now}),
			kafkaMsg(t, Activity{ChatID: "other", UserID: "u2", MessageText: "noise", SentAt: now}),
			kafkaMsg(t, Activity{ChatID: "chat-1", UserID: "u3", MessageText: "old", SentAt: now.Add(-48 * time.Hour)}),
			{Value: []byte("not json")},
			kafkaMsg(t, Activity{ChatID: "chat-1", UserID: "u4", MessageText: "recent", SentAt: now}),
		}}
	}

	got, err := c.Fetch(context.Background(), []string{"chat-1"}, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d activities, want 2", len(got))
	}
	if got[0].UserID != "u1" || got[1].UserID != "u4" {
		t.Fatalf("unexpected users: %s, %s", got[0].UserID, got[1].UserID)
	}
}

func TestKafkaFetchRespectsLimit(t *testing.T) {
	now := time.Now().UTC()
	c := NewKafkaConnector("localhost:9092", "chat-activity", "leadscout")
	c.pollTimeout = 50 * time.Millisecond
	c.newReader = func() messageReader {
		var msgs []kafka.Message
		for _, uid := range []string{"u1", "u2", "u3"} {
			msgs = append(msgs, kafkaMsg(t, Activity{ChatID: "c", UserID: uid, SentAt: now}))
		}
		return &fakeReader{msgs: msgs}
	}

	got, err := c.Fetch(context.Background(), []string{"c"}, time.Time{}, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d activities, want 2", len(got))
	}
}

func TestBridgeFetch(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/activity/fetch" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req bridgeFetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.ChatIDs) != 1 || req.ChatIDs[0] != "chat-1" {
			t.Errorf("chat_ids = %v", req.ChatIDs)
		}
		json.NewEncoder(w).Encode(bridgeFetchResponse{Activities: []Activity{
			{ChatID: "chat-1", UserID: "u1", Username: "alice", MessageText: "looking for a tool", SentAt: now},
		}})
	}))
	defer server.Close()

	c := NewBridgeConnector(server.URL)
	got, err := c.Fetch(context.Background(), []string{"chat-1"}, now.Add(-time.Hour), 50)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestBridgeFetchUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewBridgeConnector(server.URL)
	_, err := c.Fetch(context.Background(), []string{"chat-1"}, time.Time{}, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	// A refused connection is equally unavailable.
	dead := NewBridgeConnector("http://127.0.0.1:1")
	_, err = dead.Fetch(context.Background(), []string{"chat-1"}, time.Time{}, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
