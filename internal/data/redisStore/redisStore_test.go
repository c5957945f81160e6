package redisStore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// The store must dial the address it is given, not an env var or a
// compiled-in default.
func TestGetRedisStore_UsesConfiguredAddr(t *testing.T) {
	mr := miniredis.RunT(t)

	s := GetRedisStore(context.Background(), 14, mr.Addr())
	if s == nil {
		t.Fatal("expected a live store for the configured address")
	}

	if err := s.Set(context.Background(), "probe-key", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set against configured address failed: %v", err)
	}
	if got, err := mr.Get("probe-key"); err != nil || got != "v" {
		t.Errorf("value not written to the configured server: %q, %v", got, err)
	}
}

func TestGetRedisStore_OfflineAddrReturnsNil(t *testing.T) {
	// port 1 is never a redis server
	if s := GetRedisStore(context.Background(), 15, "127.0.0.1:1"); s != nil {
		t.Error("expected nil store for an unreachable address")
	}
}
