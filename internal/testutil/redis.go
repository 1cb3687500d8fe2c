package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestRedisAddr returns the first reachable address among REDIS_ADDR, the
// compose service name and the local test port.
func TestRedisAddr() (string, bool) {
	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	for _, addr := range candidates {
		if ping(addr) == nil {
			return addr, true
		}
	}
	return candidates[len(candidates)-1], false
}

// SetupTestRedis returns a client on an emptied database (TEST_REDIS_DB,
// default 9) and closes it when t ends. The test is skipped without Redis.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()
	addr, ok := TestRedisAddr()
	if !ok {
		if envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") {
			t.Fatalf("redis not available at %s", addr)
		}
		t.Skipf("redis not available at %s", addr)
	}

	db := 9
	if v, err := strconv.Atoi(os.Getenv("TEST_REDIS_DB")); err == nil && v >= 0 {
		db = v
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis db %d: %v", db, err)
	}
	return client
}

func ping(addr string) error {
	c := redis.NewClient(&redis.Options{Addr: addr})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}
