package engine

import (
	"sync"
	"testing"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

func TestRecordStore_EmptyBeforeFirstLoad(t *testing.T) {
	store := NewRecordStore()
	snap := store.Snapshot()
	if snap.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d records", snap.Len())
	}
	if snap.CategoryName(42) != UnknownCategory {
		t.Fatalf("expected unknown category fallback")
	}
}

func TestRecordStore_LoadReplacesWholesale(t *testing.T) {
	store := NewRecordStore()
	store.Load([]model.PriceRecord{{ID: 1, CategoryID: 1, Price: 100}}, []model.Category{{ID: 1, Name: "EDIBLES"}})

	old := store.Snapshot()
	store.Load([]model.PriceRecord{{ID: 2, CategoryID: 2, Price: 200}}, []model.Category{{ID: 2, Name: "DRINKS"}})

	// 旧快照持有者不受影响
	if old.Len() != 1 || old.Records[0].ID != 1 {
		t.Fatalf("old snapshot mutated: %+v", old.Records)
	}

	snap := store.Snapshot()
	if snap.Len() != 1 || snap.Records[0].ID != 2 {
		t.Fatalf("expected replaced snapshot, got %+v", snap.Records)
	}
	if snap.CategoryName(1) != UnknownCategory {
		t.Fatalf("expected old category to be gone")
	}
	if snap.CategoryName(2) != "DRINKS" {
		t.Fatalf("expected new category to resolve")
	}
}

func TestRecordStore_ConcurrentReadersSeeConsistentSnapshot(t *testing.T) {
	store := NewRecordStore()
	store.Load([]model.PriceRecord{{ID: 1, CategoryID: 1, Price: 100}}, []model.Category{{ID: 1, Name: "EDIBLES"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := store.Snapshot()
				// 每个快照内部自洽：记录数与分类表一起被替换
				if snap.Len() > 0 && len(snap.Categories) == 0 {
					t.Errorf("torn snapshot observed")
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		store.Load([]model.PriceRecord{{ID: uint(i), CategoryID: 1, Price: 100}}, []model.Category{{ID: 1, Name: "EDIBLES"}})
	}
	wg.Wait()
}
