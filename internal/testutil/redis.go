// Package testutil holds shared helpers for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// TestSecret seals values in stores created by NewStore.
const TestSecret = "test-secret-key-with-enough-length"

// NewRedis starts an in-memory Redis for the duration of the test.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// NewStore returns a token store backed by an in-memory Redis.
func NewStore(t *testing.T) *tokenstore.RedisStore {
	t.Helper()
	client, _ := NewRedis(t)
	s, err := tokenstore.NewRedisStore(client, TestSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("creating token store: %v", err)
	}
	return s
}
