//go:build integration

package cache

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("WHEELSCAN_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, addr)
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	defer c.Close()

	key := "wheelscan-test:" + Hash([]byte(time.Now().String()))
	defer c.Delete(ctx, key)

	if err := c.Set(ctx, key, []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	data, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit {
		t.Fatal("Get should hit after Set")
	}
	if !bytes.Equal(data, []byte("value")) {
		t.Errorf("Get = %q, want %q", data, "value")
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("Get should miss after Delete")
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping error: %v", err)
	}
}
