package alertstore

import (
	"context"
	"testing"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/engine"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return New(rdb), func() {
		_ = rdb.Close()
		s.Close()
	}
}

func TestLoad_EmptyWhenMissing(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	rules, err := store.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected empty rule set, got %d", len(rules))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rule := engine.NewAlertRule("Rice", 1000, time.Now())
	if err := store.Save(ctx, 7, []engine.AlertRule{rule}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(loaded))
	}
	if loaded[0].ItemName != "Rice" || loaded[0].Threshold != 1000 || loaded[0].Triggered {
		t.Fatalf("unexpected rule: %+v", loaded[0])
	}
}

func TestSave_OverwritesWholeSet(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := engine.NewAlertRule("Rice", 1000, time.Now())
	if err := store.Save(ctx, 7, []engine.AlertRule{first}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, 7, []engine.AlertRule{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	loaded, err := store.Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected overwritten empty set, got %d", len(loaded))
	}
}

func TestUserIDs(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []uint{3, 11} {
		rule := engine.NewAlertRule("Rice", 500, time.Now())
		if err := store.Save(ctx, id, []engine.AlertRule{rule}); err != nil {
			t.Fatalf("save %d: %v", id, err)
		}
	}

	ids, err := store.UserIDs(ctx)
	if err != nil {
		t.Fatalf("user ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 users, got %v", ids)
	}
}
