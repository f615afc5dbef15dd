package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisDB(t *testing.T, ttl time.Duration) (DatabaseService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	ds, err := NewDatabase("redis", "redis://"+mr.Addr(), ttl)
	if err != nil {
		t.Fatalf("NewDatabase(redis) error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds, mr
}

func TestRedis_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) DatabaseService {
		ds, _ := newTestRedisDB(t, time.Hour)
		return ds
	})
}

func TestRedis_KeysExpire(t *testing.T) {
	ds, mr := newTestRedisDB(t, time.Minute)
	ctx := context.Background()

	if err := ds.SaveSession(ctx, newTestSession(t, "s1", time.Now())); err != nil {
		t.Fatalf("SaveSession error: %v", err)
	}
	if ttl := mr.TTL(redisKey("s1")); ttl != time.Minute {
		t.Errorf("expected ttl of 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := ds.GetSession(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session to expire, got %v", err)
	}
}

func TestRedis_DeleteExpiredSessionsIsNoop(t *testing.T) {
	ds, _ := newTestRedisDB(t, time.Minute)
	deleted, err := ds.DeleteExpiredSessions(context.Background(), time.Now())
	if err != nil || deleted != 0 {
		t.Errorf("expected (0, nil), got (%d, %v)", deleted, err)
	}
}

func TestRedis_InvalidConnectionString(t *testing.T) {
	if _, err := NewRedisDatabase("not a url", time.Minute); err == nil {
		t.Fatal("expected error for invalid connection string")
	}
}
