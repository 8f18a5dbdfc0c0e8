package routing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

func TestTable_LookupMissing(t *testing.T) {
	table := NewTable()

	if _, ok := table.Lookup("chan-1"); ok {
		t.Error("empty table should not return an entry")
	}
	if table.Len() != 0 {
		t.Errorf("expected 0 entries, got %d", table.Len())
	}
}

func TestTable_UpsertThenLookup(t *testing.T) {
	table := NewTable()
	entry := domain.RoutingEntry{SourceChannelID: "chan-1", LogChannelID: "log-1", WebhookURL: "https://discord.com/api/webhooks/1/a"}

	table.Upsert(entry)

	got, ok := table.Lookup("chan-1")
	if !ok {
		t.Fatal("expected entry after upsert")
	}
	if got != entry {
		t.Errorf("got %+v, want %+v", got, entry)
	}
}

func TestTable_UpsertReplaces(t *testing.T) {
	table := NewTable()
	table.Upsert(domain.RoutingEntry{SourceChannelID: "chan-1", LogChannelID: "log-1", WebhookURL: "https://first"})
	table.Upsert(domain.RoutingEntry{SourceChannelID: "chan-1", LogChannelID: "log-2", WebhookURL: "https://second"})

	got, _ := table.Lookup("chan-1")
	if got.LogChannelID != "log-2" || got.WebhookURL != "https://second" {
		t.Errorf("second upsert should fully replace the first, got %+v", got)
	}
	if table.Len() != 1 {
		t.Errorf("expected exactly one entry per source channel, got %d", table.Len())
	}
}

func TestTable_ListSorted(t *testing.T) {
	table := NewTable()
	for _, id := range []string{"c", "a", "b"} {
		table.Upsert(domain.RoutingEntry{SourceChannelID: id})
	}

	list := table.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].SourceChannelID != want {
			t.Errorf("list[%d]: got %q, want %q", i, list[i].SourceChannelID, want)
		}
	}
}

func TestTable_ListIsSnapshot(t *testing.T) {
	table := NewTable()
	table.Upsert(domain.RoutingEntry{SourceChannelID: "a"})

	list := table.List()
	table.Upsert(domain.RoutingEntry{SourceChannelID: "b"})

	if len(list) != 1 {
		t.Errorf("snapshot should not change after later upserts, got %d entries", len(list))
	}
}

// Lookups racing an upsert must see either the old tuple or the new one.
func TestTable_ConcurrentLookupsNeverSeeMixedEntry(t *testing.T) {
	table := NewTable()
	oldEntry := domain.RoutingEntry{SourceChannelID: "chan-1", LogChannelID: "log-old", WebhookURL: "https://old"}
	newEntry := domain.RoutingEntry{SourceChannelID: "chan-1", LogChannelID: "log-new", WebhookURL: "https://new"}
	table.Upsert(oldEntry)

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan string, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, ok := table.Lookup("chan-1")
			if !ok {
				errs <- "entry disappeared during upsert"
				return
			}
			if got != oldEntry && got != newEntry {
				errs <- fmt.Sprintf("observed mixed entry %+v", got)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		table.Upsert(newEntry)
	}()

	close(start)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}

	if got, _ := table.Lookup("chan-1"); got != newEntry {
		t.Errorf("final entry: got %+v, want %+v", got, newEntry)
	}
}

func TestTable_ConcurrentUpsertsAllLand(t *testing.T) {
	table := NewTable()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table.Upsert(domain.RoutingEntry{SourceChannelID: fmt.Sprintf("chan-%d", i)})
		}(i)
	}
	wg.Wait()

	if table.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", table.Len())
	}
}
