package state

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSnapshotStore(t *testing.T, prefix string) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSnapshotStore(client, prefix), mr
}

func TestRedisSnapshotRoundTrip(t *testing.T) {
	store, _ := newTestSnapshotStore(t, "")
	ctx := context.Background()

	blob, err := Serialize(authenticatedState())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if err := store.Save(ctx, blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != string(blob) {
		t.Fatalf("blob changed in flight:\n got %s\nwant %s", got, blob)
	}
}

func TestRedisSnapshotLoadMissing(t *testing.T) {
	store, _ := newTestSnapshotStore(t, "")
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("missing key must map to ErrNoSnapshot, got %v", err)
	}
}

func TestRedisSnapshotClear(t *testing.T) {
	store, _ := newTestSnapshotStore(t, "")
	ctx := context.Background()

	if err := store.Save(ctx, []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("cleared store must report ErrNoSnapshot, got %v", err)
	}
}

func TestRedisSnapshotKeyPrefix(t *testing.T) {
	store, mr := newTestSnapshotStore(t, "tenant42")
	if err := store.Save(context.Background(), []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mr.Exists("tenant42:state:snapshot") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}

	defaulted, mr2 := newTestSnapshotStore(t, "")
	if err := defaulted.Save(context.Background(), []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mr2.Exists("loginrisk:state:snapshot") {
		t.Fatalf("expected default prefix, have %v", mr2.Keys())
	}
}
