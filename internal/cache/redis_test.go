package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"bizreport/api/internal/config"
)

func TestNewRedisClientAndProbe(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 2, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	probe := Probe(client)
	if err := probe(context.Background()); err != nil {
		t.Fatalf("probe on live server: %v", err)
	}

	mr.Close()
	if err := probe(context.Background()); err == nil {
		t.Fatal("probe after server close = nil, want error")
	}
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("NewRedisClient on closed address = nil error")
	}
}
