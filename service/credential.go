package service

import (
	"Formpay/config"
	"Formpay/pkg/log"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CredentialStore 凭证缓存后端；未命中返回 ok=false
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// FetchFunc 从网关获取凭证及其有效期
type FetchFunc func(ctx context.Context) (string, time.Duration, error)

type CredentialCache struct {
	store        CredentialStore
	margin       time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
}

func NewCredentialCache(store CredentialStore, cfg *config.Config) *CredentialCache {
	return &CredentialCache{
		store:        store,
		margin:       cfg.Credential.SafetyMargin(),
		fetchTimeout: cfg.Credential.FetchTimeout(),
	}
}

func CredentialKey(appID, name string) string {
	return fmt.Sprintf("formpay:cred:%s:%s", appID, name)
}

// GetOrFetch 命中直接返回；未命中时同一 key 只有一个请求打到网关，其余等待结果。
// 等待方按自己的 ctx 退出，取数在独立 ctx 上执行，不受单个调用方取消影响。
func (c *CredentialCache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (string, error) {
	if v, ok := c.lookup(ctx, key); ok {
		credentialTotal.WithLabelValues("hit").Inc()
		return v, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		// 排队期间可能已被上一轮写入
		if v, ok := c.lookup(fctx, key); ok {
			return v, nil
		}

		credentialTotal.WithLabelValues("fetch").Inc()
		v, gatewayTTL, err := fetch(fctx)
		if err != nil {
			credentialTotal.WithLabelValues("error").Inc()
			return "", err
		}
		if ttl := c.cacheTTL(gatewayTTL); ttl > 0 {
			if err := c.store.SetWithTTL(fctx, key, v, ttl); err != nil {
				log.L.Warn("credential cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate 网关判定凭证失效时删除缓存，后续调用重新获取
func (c *CredentialCache) Invalidate(ctx context.Context, key string) {
	c.group.Forget(key)
	if err := c.store.Del(ctx, key); err != nil {
		log.L.Warn("credential cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CredentialCache) lookup(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.L.Warn("credential cache get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok && v != ""
}

// cacheTTL 提前 margin 过期；网关给的有效期不足 margin 时缓存一半
func (c *CredentialCache) cacheTTL(gatewayTTL time.Duration) time.Duration {
	if gatewayTTL <= 0 {
		return 0
	}
	if gatewayTTL > c.margin {
		return gatewayTTL - c.margin
	}
	return gatewayTTL / 2
}
