package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalCredentialStore(t *testing.T) {
	ctx := context.Background()
	s := NewLocalCredentialStore()

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if err := s.SetWithTTL(ctx, "k", "v", 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("get = %q %v", v, ok)
	}
	time.Sleep(80 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("value should have expired")
	}

	s.SetWithTTL(ctx, "zero", "v", 0)
	if _, ok, _ := s.Get(ctx, "zero"); ok {
		t.Fatal("non-positive ttl must not be cached")
	}

	s.SetWithTTL(ctx, "k", "v", time.Minute)
	s.Del(ctx, "k")
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("value should be deleted")
	}
}

func TestLocalSweepLock(t *testing.T) {
	l := NewLocalSweepLock()
	release, ok, err := l.TryAcquire(context.Background())
	if !ok || err != nil {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryAcquire(context.Background()); ok {
		t.Fatal("second acquire should fail while held")
	}
	release()
	release2, ok, _ := l.TryAcquire(context.Background())
	if !ok {
		t.Fatal("acquire after release should succeed")
	}
	release2()
}
