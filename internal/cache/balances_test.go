package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/splitledger/internal/models"
)

func TestNew_EmptyURLDisablesCache(t *testing.T) {
	c, err := New(context.Background(), "", time.Minute)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c != nil || c.Enabled() {
		t.Fatal("expected a nil, disabled cache")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(context.Background(), "http://not-redis", time.Minute); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, "redis://127.0.0.1:1/0", time.Minute); err == nil {
		t.Error("expected ping error for unreachable server")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *BalanceCache
	ctx := context.Background()

	if err := c.Set(ctx, "alice", models.Balances{}); err != nil {
		t.Errorf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "alice"); ok || err != nil {
		t.Errorf("Get = %v, %v; want miss", ok, err)
	}
	if err := c.Invalidate(ctx, "alice", "bob"); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if gen, err := c.Generation(ctx, "alice"); gen != 0 || err != nil {
		t.Errorf("Generation = %d, %v; want 0", gen, err)
	}
	if stored, err := c.SetIfGeneration(ctx, "alice", 0, models.Balances{}); stored || err != nil {
		t.Errorf("SetIfGeneration = %v, %v; want not stored", stored, err)
	}
	if err := c.Health(ctx); err != nil {
		t.Errorf("Health: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBalanceKey(t *testing.T) {
	if got := balanceKey("u1"); got != "splitledger:balances:u1" {
		t.Errorf("balanceKey() = %q", got)
	}
	if got := generationKey("u1"); got != "splitledger:balances:gen:u1" {
		t.Errorf("generationKey() = %q", got)
	}
}

func TestNewWithClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	c := NewWithClient(client, time.Minute)
	if !c.Enabled() {
		t.Error("cache with a client should be enabled")
	}
}
