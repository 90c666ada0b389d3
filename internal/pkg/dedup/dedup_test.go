package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newDeduper(t *testing.T, ttl time.Duration) *Deduplicator {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})
	return NewDeduplicator(rdb, ttl)
}

func TestDeduplicator_IsDuplicate(t *testing.T) {
	d := newDeduper(t, time.Minute)
	ctx := context.Background()

	sub := Submission{Name: "Rice", Price: 1200, Retailer: "Mama Nkechi", Location: "Moremi Hall"}

	dup, err := d.IsDuplicate(ctx, sub)
	if err != nil {
		t.Fatalf("first dedup: %v", err)
	}
	if dup {
		t.Fatalf("expected first to be non-duplicate")
	}

	dup, err = d.IsDuplicate(ctx, sub)
	if err != nil {
		t.Fatalf("second dedup: %v", err)
	}
	if !dup {
		t.Fatalf("expected second to be duplicate")
	}
}

func TestDeduplicator_FingerprintIgnoresCaseAndSpace(t *testing.T) {
	d := newDeduper(t, time.Minute)
	ctx := context.Background()

	first := Submission{Name: "Rice", Price: 1200, Retailer: "Mama Nkechi", Location: "Moremi Hall"}
	second := Submission{Name: "  rice ", Price: 1200, Retailer: "MAMA NKECHI", Location: "moremi hall"}

	if dup, err := d.IsDuplicate(ctx, first); err != nil || dup {
		t.Fatalf("first: dup=%v err=%v", dup, err)
	}
	if dup, err := d.IsDuplicate(ctx, second); err != nil || !dup {
		t.Fatalf("expected normalized submission to be duplicate, dup=%v err=%v", dup, err)
	}
}

func TestDeduplicator_DifferentPriceIsNotDuplicate(t *testing.T) {
	d := newDeduper(t, time.Minute)
	ctx := context.Background()

	first := Submission{Name: "Rice", Price: 1200, Retailer: "Mama Nkechi", Location: "Moremi Hall"}
	second := first
	second.Price = 1150

	if dup, err := d.IsDuplicate(ctx, first); err != nil || dup {
		t.Fatalf("first: dup=%v err=%v", dup, err)
	}
	if dup, err := d.IsDuplicate(ctx, second); err != nil || dup {
		t.Fatalf("expected different price to pass, dup=%v err=%v", dup, err)
	}
}

func TestDeduplicator_Forget(t *testing.T) {
	d := newDeduper(t, time.Minute)
	ctx := context.Background()

	sub := Submission{Name: "Rice", Price: 1200, Retailer: "Mama Nkechi", Location: "Moremi Hall"}

	if dup, err := d.IsDuplicate(ctx, sub); err != nil || dup {
		t.Fatalf("first: dup=%v err=%v", dup, err)
	}
	if err := d.Forget(ctx, sub); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if dup, err := d.IsDuplicate(ctx, sub); err != nil || dup {
		t.Fatalf("expected forgotten submission to pass, dup=%v err=%v", dup, err)
	}
}
