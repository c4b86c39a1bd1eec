package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/models"
)

// memoryKV answers Get/Set from a map with the result types the real
// client returns.
type memoryKV struct {
	data   map[string]string
	getErr error
	setErr error
}

func (m *memoryKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryKV) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if m.setErr != nil {
		return redis.NewStatusResult("", m.setErr)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func TestStateRedis_RoundTrip(t *testing.T) {
	kv := &memoryKV{data: map[string]string{}}
	store := NewStateRedis(kv, "planner:state")

	got, err := store.Load(context.Background())
	if err != nil || got != nil {
		t.Fatalf("missing key must load as no state, got %+v, %v", got, err)
	}

	finished := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
	if err := store.Save(context.Background(), models.RunState{DisinfectionEnabled: true, DisinfectionFinishedAt: &finished}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = store.Load(context.Background())
	if err != nil || got == nil || !got.DisinfectionEnabled || !got.DisinfectionFinishedAt.Equal(finished) {
		t.Fatalf("load: %+v, %v", got, err)
	}
}

func TestStateRedis_Errors(t *testing.T) {
	store := NewStateRedis(&memoryKV{data: map[string]string{"k": "{broken"}}, "k")
	if got, err := store.Load(context.Background()); err != nil || got != nil {
		t.Fatalf("unparseable value must load as no state, got %+v, %v", got, err)
	}

	down := errors.New("connection refused")
	store = NewStateRedis(&memoryKV{data: map[string]string{}, getErr: down, setErr: down}, "k")
	if _, err := store.Load(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected get error, got %v", err)
	}
	if err := store.Save(context.Background(), models.RunState{}); !errors.Is(err, down) {
		t.Fatalf("expected set error, got %v", err)
	}
}

type closingKV struct {
	memoryKV
	closed int
}

func (c *closingKV) Close() error {
	c.closed++
	return nil
}

func TestRepository_CloseReleasesRedisClient(t *testing.T) {
	kv := &closingKV{memoryKV: memoryKV{data: map[string]string{}}}
	repos := &Repository{State: NewStateRedis(kv, "k")}
	if err := repos.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if kv.closed != 1 {
		t.Fatalf("redis client closed %d times, want 1", kv.closed)
	}

	repos = &Repository{State: NewStateFile("x.yaml")}
	if err := repos.Close(); err != nil {
		t.Fatalf("close without closable backend: %v", err)
	}

	store, err := NewStateStore(nil, config.StateConfig{Backend: config.BackendRedis, RedisAddr: "localhost:6379"})
	if err != nil {
		t.Fatalf("redis backend: %v", err)
	}
	if err := (&Repository{State: store}).Close(); err != nil {
		t.Fatalf("close real client: %v", err)
	}
}

func TestNewStateStore_Backends(t *testing.T) {
	cases := []struct {
		backend string
		want    string
	}{
		{config.BackendSQLite, "*repository.StateSQLite"},
		{config.BackendFile, "*repository.StateFile"},
		{config.BackendRedis, "*repository.StateRedis"},
	}
	for _, tc := range cases {
		store, err := NewStateStore(nil, config.StateConfig{Backend: tc.backend, Path: "x.yaml", RedisAddr: "localhost:6379"})
		if err != nil {
			t.Fatalf("%s: %v", tc.backend, err)
		}
		if got := typeName(store); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.backend, got, tc.want)
		}
	}
	if _, err := NewStateStore(nil, config.StateConfig{Backend: "etcd"}); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *StateSQLite:
		return "*repository.StateSQLite"
	case *StateFile:
		return "*repository.StateFile"
	case *StateRedis:
		return "*repository.StateRedis"
	default:
		return "unknown"
	}
}
