package engine

import (
	"testing"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

func TestCheapestPrice(t *testing.T) {
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Name: "Rice", Price: 500},
		model.PriceRecord{ID: 2, CategoryID: 1, Name: "Rice", Price: 350},
		model.PriceRecord{ID: 3, CategoryID: 1, Name: "Beans", Price: 100},
	)

	if got := CheapestPrice(snap, "RICE"); got != 350 {
		t.Fatalf("expected 350, got %v", got)
	}
	if got := CheapestPrice(snap, "garri"); got != 0 {
		t.Fatalf("expected 0 for unknown item, got %v", got)
	}
}

func TestSavings(t *testing.T) {
	report := Savings(500, 350)
	if report.Savings != 150 {
		t.Fatalf("expected savings 150, got %v", report.Savings)
	}
	if report.SavingsPercentage != 30 {
		t.Fatalf("expected 30%%, got %v", report.SavingsPercentage)
	}

	zero := Savings(0, 0)
	if zero.SavingsPercentage != 0 {
		t.Fatalf("zero current price must yield 0%%, got %v", zero.SavingsPercentage)
	}
}

func TestBuildHeatmap(t *testing.T) {
	now := time.Now()
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Name: "Rice", Price: 500, Location: "Moremi", SubmittedAt: now},
		model.PriceRecord{ID: 2, CategoryID: 1, Name: "Rice", Price: 450, Location: "Moremi", SubmittedAt: now},
		model.PriceRecord{ID: 3, CategoryID: 1, Name: "Rice", Price: 900, Location: "Yaba", SubmittedAt: now},
		model.PriceRecord{ID: 4, CategoryID: 1, Name: "Beans", Price: 100, Location: "Yaba", SubmittedAt: now},
	)

	cells := BuildHeatmap(snap, "rice", now.Add(-time.Hour))
	if len(cells) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(cells))
	}
	// Moremi：提交更多且更便宜，应排在前面
	if cells[0].Name != "Moremi" {
		t.Fatalf("expected Moremi first, got %s", cells[0].Name)
	}
	if cells[0].Count != 2 || cells[0].MinPrice != 450 || cells[0].MaxPrice != 500 {
		t.Fatalf("unexpected Moremi cell: %+v", cells[0])
	}
	if cells[0].Intensity != 1.0 {
		t.Fatalf("expected max intensity 1.0, got %v", cells[0].Intensity)
	}
}

func TestBuildHeatmap_CutoffExcludesOldRecords(t *testing.T) {
	now := time.Now()
	snap := snapshotOf(
		model.PriceRecord{ID: 1, CategoryID: 1, Name: "Rice", Price: 500, Location: "Moremi", SubmittedAt: now.Add(-48 * time.Hour)},
		model.PriceRecord{ID: 2, CategoryID: 1, Name: "Rice", Price: 600, Location: "Yaba", SubmittedAt: now},
	)

	cells := BuildHeatmap(snap, "rice", now.Add(-24*time.Hour))
	if len(cells) != 1 || cells[0].Name != "Yaba" {
		t.Fatalf("expected only recent location, got %+v", cells)
	}
}
