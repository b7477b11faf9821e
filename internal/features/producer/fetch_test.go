package producer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func seedUpdates(c *fakeSiteClient) {
	for i, name := range []string{"ul-1", "ul-2", "ul-3"} {
		c.addUpdate(UpdateLog{
			Name:       name,
			UpdateType: UpdateTypeCreate,
			RefDoctype: "Note",
			Docname:    "N-" + name,
			Creation:   testBase.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestFetchOrdersOldestFirst(t *testing.T) {
	client := newFakeSiteClient()
	seedUpdates(client)

	p := &EventProducer{URL: "http://producer.test"}
	logs, err := fetchUpdates(context.Background(), client, p, []string{"Note"}, zap.NewNop())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []string{"ul-1", "ul-2", "ul-3"}
	if len(logs) != len(want) {
		t.Fatalf("got %d updates, want %d", len(logs), len(want))
	}
	for i := range want {
		if logs[i].Name != want[i] {
			t.Fatalf("position %d = %s, want %s: the newest-first batch must be reversed", i, logs[i].Name, want[i])
		}
	}
}

func TestFetchStartsAfterCursor(t *testing.T) {
	client := newFakeSiteClient()
	seedUpdates(client)

	p := &EventProducer{URL: "http://producer.test", LastUpdate: "ul-2"}
	logs, err := fetchUpdates(context.Background(), client, p, []string{"Note"}, zap.NewNop())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(logs) != 1 || logs[0].Name != "ul-3" {
		t.Fatalf("got %v, want only ul-3", logs)
	}
}

func TestFetchRestrictsToSubscribedDoctypes(t *testing.T) {
	client := newFakeSiteClient()
	seedUpdates(client)
	client.addUpdate(UpdateLog{
		Name:       "ul-other",
		UpdateType: UpdateTypeCreate,
		RefDoctype: "Secret",
		Docname:    "S-1",
		Creation:   testBase.Add(time.Hour),
	})

	p := &EventProducer{URL: "http://producer.test"}
	logs, err := fetchUpdates(context.Background(), client, p, []string{"Note"}, zap.NewNop())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for _, u := range logs {
		if u.RefDoctype != "Note" {
			t.Fatalf("unsubscribed doctype %s leaked into the batch", u.RefDoctype)
		}
	}
}

func TestFetchPropagatesTransportError(t *testing.T) {
	client := newFakeSiteClient()
	client.failFetch = true

	p := &EventProducer{URL: "http://producer.test"}
	if _, err := fetchUpdates(context.Background(), client, p, []string{"Note"}, zap.NewNop()); err == nil {
		t.Fatal("transport failure must surface to the caller")
	}
}

type badClockClient struct {
	*fakeSiteClient
}

func (c *badClockClient) GetValue(ctx context.Context, doctype, name, field string) (string, error) {
	return "yesterday-ish", nil
}

func TestFetchWarnsOnUnparseableCursorTimestamp(t *testing.T) {
	client := &badClockClient{fakeSiteClient: newFakeSiteClient()}
	seedUpdates(client.fakeSiteClient)

	core, logged := observer.New(zap.WarnLevel)
	p := &EventProducer{URL: "http://producer.test", LastUpdate: "ul-2"}

	logs, err := fetchUpdates(context.Background(), client, p, []string{"Note"}, zap.New(core))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The broken cursor degrades to a full-history refetch, loudly.
	if len(logs) != 3 {
		t.Fatalf("got %d updates, want the full history of 3", len(logs))
	}
	warnings := logged.FilterMessageSnippet("unparseable").All()
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
}
