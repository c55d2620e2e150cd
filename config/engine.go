package config

import "time"

// Credential access_token / jsapi_ticket 缓存
type Credential struct {
	SafetyMarginSeconds int `yaml:"safety_margin_seconds"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

func (c *Credential) setDefaults() {
	if c.SafetyMarginSeconds <= 0 {
		c.SafetyMarginSeconds = 300
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 5
	}
}

func (c *Credential) SafetyMargin() time.Duration {
	return time.Duration(c.SafetyMarginSeconds) * time.Second
}

func (c *Credential) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Notify 回调先于下单事务提交到达时的重试
type Notify struct {
	LookupAttempts  int `yaml:"lookup_attempts"`
	LookupBackoffMs int `yaml:"lookup_backoff_ms"`
}

func (n *Notify) setDefaults() {
	if n.LookupAttempts <= 0 {
		n.LookupAttempts = 3
	}
	if n.LookupBackoffMs <= 0 {
		n.LookupBackoffMs = 100
	}
}

func (n *Notify) LookupBackoff() time.Duration {
	return time.Duration(n.LookupBackoffMs) * time.Millisecond
}

// Reconcile 主动查单补偿
type Reconcile struct {
	Spec              string `yaml:"spec"` // cron 表达式
	StaleAfterMinutes int    `yaml:"stale_after_minutes"`
	BatchSize         int    `yaml:"batch_size"`
	Concurrency       int    `yaml:"concurrency"`
	LockTTLSeconds    int    `yaml:"lock_ttl_seconds"`
}

func (r *Reconcile) setDefaults() {
	if r.Spec == "" {
		r.Spec = "@every 5m"
	}
	if r.StaleAfterMinutes <= 0 {
		r.StaleAfterMinutes = 10
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 200
	}
	if r.Concurrency <= 0 {
		r.Concurrency = 8
	}
	if r.LockTTLSeconds <= 0 {
		r.LockTTLSeconds = 240
	}
}

func (r *Reconcile) StaleAfter() time.Duration {
	return time.Duration(r.StaleAfterMinutes) * time.Minute
}

func (r *Reconcile) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}
