package config

import "time"

type App struct {
	Env   string `json:"env" yaml:"env"`
	Debug bool   `json:"debug" yaml:"debug"`
	// 对外暴露 submission id 的 hashid 盐
	HashSalt string `json:"hash_salt" yaml:"hash_salt"`
}

type Log struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file" yaml:"file"` // 为空只输出到 stdout
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

type Jwt struct {
	Secret        string `json:"secret" yaml:"secret"`
	ExpireSeconds int    `json:"expire_seconds" yaml:"expire_seconds"`
}

func ProvideLogConfig(cfg *Config) *Log {
	return cfg.Log
}

func (j *Jwt) Expire() time.Duration {
	return time.Duration(j.ExpireSeconds) * time.Second
}
