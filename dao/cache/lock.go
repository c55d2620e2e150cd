package cache

import (
	"Formpay/pkg/log"
	"context"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sweepLockKey = "formpay:lock:reconcile"

// RedisSweepLock 保证同一时刻只有一个实例在对账
type RedisSweepLock struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewRedisSweepLock(client *redis.Client, ttl time.Duration) *RedisSweepLock {
	pool := goredis.NewPool(client)
	return &RedisSweepLock{rs: redsync.New(pool), ttl: ttl}
}

// TryAcquire 不等待；拿不到锁返回 ok=false
func (l *RedisSweepLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	m := l.rs.NewMutex(sweepLockKey, redsync.WithExpiry(l.ttl), redsync.WithTries(1))
	if err := m.LockContext(ctx); err != nil {
		log.L.Info("reconcile lock not acquired", zap.Error(err))
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := m.UnlockContext(ctx); err != nil {
			log.L.Warn("reconcile lock release", zap.Error(err))
		}
	}
	return release, true, nil
}

// LocalSweepLock 进程内互斥
type LocalSweepLock struct {
	mu sync.Mutex
}

func NewLocalSweepLock() *LocalSweepLock {
	return &LocalSweepLock{}
}

func (l *LocalSweepLock) TryAcquire(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}
