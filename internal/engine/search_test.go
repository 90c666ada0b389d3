package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

func TestSearch_MatchesAcrossFields(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Name: "Rice", Price: 500},
		model.PriceRecord{ID: 2, CategoryID: 2, Name: "Coke", Price: 300, Retailer: "Rice Corner"},
		model.PriceRecord{ID: 3, CategoryID: 1, Name: "Beans", Price: 700, Location: "New Hall"},
		model.PriceRecord{ID: 4, CategoryID: 2, Name: "Milk", Price: 900, Brand: "Peak"},
	)

	if got := Search(snap, "rice"); len(got) != 2 {
		t.Fatalf("expected name+retailer matches, got %d", len(got))
	}
	if got := Search(snap, "hall"); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("expected location match, got %v", got)
	}
	if got := Search(snap, "peak"); len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("expected brand match, got %v", got)
	}
}

func TestSearch_EmptyQueryReturnsFullSnapshot(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Price: 500},
		model.PriceRecord{ID: 2, CategoryID: 2, Price: 300},
	)
	if got := Search(snap, "  "); len(got) != 2 {
		t.Fatalf("expected full snapshot for empty query, got %d", len(got))
	}
}

func TestSearchTop_CapsDisplayLimit(t *testing.T) {
	records := make([]model.PriceRecord, 0, 10)
	for i := 1; i <= 10; i++ {
		records = append(records, model.PriceRecord{ID: uint(i), CategoryID: 1, Name: "Rice", Price: float64(i * 100)})
	}
	snap := snapshotOf(records...)

	got := SearchTop(snap, "rice")
	if len(got) != SearchDisplayLimit {
		t.Fatalf("expected %d results, got %d", SearchDisplayLimit, len(got))
	}
	// 上限只截断，不改变截断前的匹配顺序
	for i, rec := range got {
		if rec.ID != uint(i+1) {
			t.Fatalf("expected snapshot order below cap, got id %d at %d", rec.ID, i)
		}
	}
}

func TestDebouncedSearcher_OnlyLatestQueryEvaluated(t *testing.T) {
	store := NewRecordStore()
	store.Load([]model.PriceRecord{
		{ID: 1, CategoryID: 1, Name: "Apple", Price: 200},
	}, []model.Category{{ID: 1, Name: "EDIBLES"}})

	var mu sync.Mutex
	var queries []string

	searcher := NewDebouncedSearcher(store, 30*time.Millisecond, func(q string, _ []SearchResult) {
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
	})
	defer searcher.Stop()

	searcher.Query("a")
	searcher.Query("ap")
	searcher.Query("app")

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 1 {
		t.Fatalf("expected exactly one evaluation, got %d (%v)", len(queries), queries)
	}
	if queries[0] != "app" {
		t.Fatalf("expected latest query to win, got %q", queries[0])
	}
}
