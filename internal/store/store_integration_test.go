//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/intent"
)

func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	p, err := NewPostgres(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := p.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func setupRedis(t *testing.T) *Redis {
	t.Helper()
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}
	r, err := NewRedis(context.Background(), redisURL, time.Minute)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	id := "integration-" + uuid.New().String()[:8]

	in := intent.SwapIntent{SourceToken: "ETH", DestToken: "USDC", Amount: "0.1"}
	st := conversation.State{
		ID:         id,
		Step:       conversation.AwaitingAddress{Intent: in},
		History:    []conversation.Turn{{Role: "user", Text: "swap 0.1 ETH to USDC", At: time.Now().UTC()}},
		Generation: 2,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := b.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := b.Load(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if got.Step.Kind() != conversation.KindAwaitingAddress {
		t.Errorf("expected awaiting_address, got %s", got.Step.Kind())
	}
	if got.Generation != 2 || len(got.History) != 1 {
		t.Errorf("unexpected state %+v", got)
	}

	st.Step = conversation.Idle{}
	if err := b.Save(ctx, st); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, _, _ = b.Load(ctx, id)
	if got.Step.Kind() != conversation.KindIdle {
		t.Errorf("expected overwrite to idle, got %s", got.Step.Kind())
	}

	if err := b.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := b.Load(ctx, id); ok {
		t.Error("expected conversation deleted")
	}
}

func TestIntegration_Postgres(t *testing.T) {
	exerciseBackend(t, setupPostgres(t))
}

func TestIntegration_PostgresPurge(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	id := "integration-stale-" + uuid.New().String()[:8]

	st := conversation.NewState(id)
	st.UpdatedAt = time.Now().Add(-72 * time.Hour)
	if err := p.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	n, err := p.Purge(ctx, time.Now().Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least 1 purged row, got %d", n)
	}
}

func TestIntegration_Redis(t *testing.T) {
	exerciseBackend(t, setupRedis(t))
}
