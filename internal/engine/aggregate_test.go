package engine

import (
	"testing"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

func TestAggregate_EmptySnapshotYieldsZeros(t *testing.T) {
	store := NewRecordStore()
	summary := Aggregate(store.Snapshot())

	if summary.Total.Count != 0 || summary.Total.Average != 0 || summary.Total.Min != 0 || summary.Total.Max != 0 {
		t.Fatalf("expected zero total stats, got %+v", summary.Total)
	}
	if len(summary.PerCategory) != 0 {
		t.Fatalf("expected no category stats, got %v", summary.PerCategory)
	}
	if summary.DistinctRetailers != 0 || summary.DistinctLocations != 0 {
		t.Fatalf("expected zero distinct counts, got %d/%d", summary.DistinctRetailers, summary.DistinctLocations)
	}
}

func TestAggregate_PerCategoryStats(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Price: 100},
		model.PriceRecord{ID: 2, CategoryID: 1, Price: 300},
	)

	summary := Aggregate(snap)
	stats, ok := summary.PerCategory[1]
	if !ok {
		t.Fatalf("expected stats for category 1")
	}
	if stats.Count != 2 || stats.Average != 200 || stats.Min != 100 || stats.Max != 300 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAggregate_DistinctCountsSkipEmptyValues(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Price: 100, Retailer: "Shoprite", Location: "Yaba"},
		model.PriceRecord{ID: 2, CategoryID: 1, Price: 200, Retailer: "Shoprite", Location: ""},
		model.PriceRecord{ID: 3, CategoryID: 2, Price: 300, Retailer: "", Location: "Akoka"},
	)

	summary := Aggregate(snap)
	if summary.DistinctRetailers != 1 {
		t.Fatalf("expected 1 distinct retailer, got %d", summary.DistinctRetailers)
	}
	if summary.DistinctLocations != 2 {
		t.Fatalf("expected 2 distinct locations, got %d", summary.DistinctLocations)
	}
	if summary.Total.Count != 3 {
		t.Fatalf("expected total count 3, got %d", summary.Total.Count)
	}
}
