package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

func snapshotOf(records ...model.PriceRecord) *Snapshot {
	s := NewRecordStore()
	s.Load(records, []model.Category{
		{ID: 1, Name: "EDIBLES"},
		{ID: 2, Name: "DRINKS"},
	})
	return s.Snapshot()
}

func TestApply_PreservesOrderAndSubset(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Name: "Rice", Price: 500, Retailer: "Mama Put", Location: "Moremi"},
		model.PriceRecord{ID: 2, CategoryID: 2, Name: "Coke", Price: 300, Retailer: "Shoprite", Location: "Yaba"},
		model.PriceRecord{ID: 3, CategoryID: 1, Name: "Beans", Price: 700, Retailer: "Mama Put", Location: "Akoka"},
	)

	got := Apply(snap, FilterCriteria{CategoryID: 1})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("expected snapshot order preserved, got ids %d,%d", got[0].ID, got[1].ID)
	}
}

func TestApply_AllCriteriaMustMatch(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Name: "Rice", Price: 500, Retailer: "Mama Put", Location: "Moremi Hall"},
		model.PriceRecord{ID: 2, CategoryID: 1, Name: "Rice", Price: 1500, Retailer: "Shoprite", Location: "Yaba"},
	)

	got := Apply(snap, FilterCriteria{
		CategoryID:        1,
		MinPrice:          100,
		MaxPrice:          1000,
		RetailerSubstring: "mama",
		LocationSubstring: "MOREMI",
	})
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only record 1, got %v", got)
	}
}

func TestApply_EmptyCriteriaReturnsAll(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Price: 500},
		model.PriceRecord{ID: 2, CategoryID: 2, Price: 300},
	)
	got := Apply(snap, FilterCriteria{})
	if len(got) != 2 {
		t.Fatalf("expected all records, got %d", len(got))
	}
}

func TestApply_NonFinitePriceNeverMatchesBoundedFilter(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Price: math.NaN()},
		model.PriceRecord{ID: 2, CategoryID: 1, Price: math.Inf(1)},
		model.PriceRecord{ID: 3, CategoryID: 1, Price: 200},
	)

	got := Apply(snap, FilterCriteria{MinPrice: 1, MaxPrice: 1000000})
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("expected only finite-priced record, got %v", got)
	}
}

func TestApply_Idempotent(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Price: 500, Retailer: "Mama Put"},
		model.PriceRecord{ID: 2, CategoryID: 2, Price: 300, Retailer: "Shoprite"},
	)
	criteria := FilterCriteria{RetailerSubstring: "sho"}

	first := Apply(snap, criteria)
	second := Apply(snap, criteria)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}
}
