package goLoginRisk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/CrypticVoid/goLoginRisk/state"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestBuildRequiresTransport(t *testing.T) {
	if _, err := New().Build(); !errors.Is(err, ErrTransportRequired) {
		t.Fatalf("expected ErrTransportRequired, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Orchestrator.Mode = "made_up"

	if _, err := New().WithConfig(cfg).WithTransport(&fakeTransport{}).Build(); err == nil {
		t.Fatal("invalid config must fail the build")
	}
}

func TestBuildSingleUse(t *testing.T) {
	b := New().WithTransport(&fakeTransport{})
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second build must be refused")
	}
}

func TestSnapshotPersistedAcrossEngines(t *testing.T) {
	client, _ := newTestRedis(t)

	engine, err := New().WithTransport(&fakeTransport{}).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	if _, err := engine.Login(context.Background(), validRequest()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	want := engine.State()
	engine.Close()

	restored, err := New().WithTransport(&fakeTransport{}).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("second engine build failed: %v", err)
	}
	defer restored.Close()

	got := restored.State()
	if got.Auth.Status != state.AuthAuthenticated || got.Auth.UserID != want.Auth.UserID {
		t.Fatalf("auth state not restored: %+v", got.Auth)
	}
	if got.Session == nil || got.Session.SessionID != want.Session.SessionID {
		t.Fatalf("session not restored: %+v", got.Session)
	}
	// Tokens are transient and must not survive the restart.
	if got.Session.AccessToken != "" || got.Session.RefreshToken != "" {
		t.Fatal("tokens leaked through persistence")
	}
	if restored.MetricsSnapshot().Counters[MetricSnapshotRestored] != 1 {
		t.Fatal("restore counter not incremented")
	}
}

func TestCorruptedSnapshotFallsBackToInitial(t *testing.T) {
	client, mr := newTestRedis(t)
	mr.Set("loginrisk:state:snapshot", `{"version":1,"auth":{"status":"wedged"}}`)

	engine, err := New().
		WithTransport(&fakeTransport{}).
		WithRedis(client).
		WithWarnLogger(func(string, ...any) {}).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	if got := engine.State(); got.Auth.Status != state.AuthUnauthenticated {
		t.Fatalf("rejected snapshot must fall back wholesale: %+v", got)
	}
	if engine.MetricsSnapshot().Counters[MetricSnapshotRejected] != 1 {
		t.Fatal("rejection counter not incremented")
	}
}

func TestRestoreOnStartDisabled(t *testing.T) {
	client, _ := newTestRedis(t)

	engine, err := New().WithTransport(&fakeTransport{}).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	if _, err := engine.Login(context.Background(), validRequest()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	engine.Close()

	cfg := defaultConfig()
	cfg.Session.RestoreOnStart = false
	fresh, err := New().WithConfig(cfg).WithTransport(&fakeTransport{}).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("second engine build failed: %v", err)
	}
	defer fresh.Close()

	if got := fresh.State(); got.Auth.Status != state.AuthUnauthenticated {
		t.Fatalf("restore disabled must start from initial: %+v", got.Auth)
	}
}

func TestLogoutClearsSnapshot(t *testing.T) {
	client, mr := newTestRedis(t)

	engine, err := New().WithTransport(&fakeTransport{}).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Login(context.Background(), validRequest()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !mr.Exists("loginrisk:state:snapshot") {
		t.Fatal("login must persist a snapshot")
	}

	if err := engine.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if mr.Exists("loginrisk:state:snapshot") {
		t.Fatal("logout must clear the snapshot")
	}
}

func TestWithSnapshotStorePrecedence(t *testing.T) {
	client, mr := newTestRedis(t)
	custom := &recordingSnapshotStore{}

	engine, err := New().
		WithTransport(&fakeTransport{}).
		WithRedis(client).
		WithSnapshotStore(custom).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Login(context.Background(), validRequest()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if custom.saves == 0 {
		t.Fatal("custom snapshot store must take precedence over redis")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("redis must stay untouched, keys: %v", mr.Keys())
	}
}

func TestWithClock(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	engine, err := New().
		WithTransport(&fakeTransport{}).
		WithClock(func() time.Time { return fixed }).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Login(context.Background(), validRequest()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got := engine.State().Session.CreatedAt; got != fixed.Unix() {
		t.Fatalf("injected clock not used: %d", got)
	}
}

type recordingSnapshotStore struct {
	saves int
	data  []byte
}

func (s *recordingSnapshotStore) Save(_ context.Context, data []byte) error {
	s.saves++
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *recordingSnapshotStore) Load(context.Context) ([]byte, error) {
	if s.data == nil {
		return nil, state.ErrNoSnapshot
	}
	return s.data, nil
}

func (s *recordingSnapshotStore) Clear(context.Context) error {
	s.data = nil
	return nil
}
