package config

// RocketMQConfig 支付成功事件投递；nameserver 为空时不投递
type RocketMQConfig struct {
	NameServer []string `yaml:"nameserver"`

	Producer Producer `yaml:"producer"`

	Topic string `yaml:"topic"`
}

type Producer struct {
	Group string `yaml:"group"`
	Retry int    `yaml:"retry"`
}

func (r *RocketMQConfig) Enabled() bool {
	return r != nil && len(r.NameServer) > 0 && r.Topic != ""
}

func ProvideRocketMQConfig(cfg *Config) *RocketMQConfig {
	return cfg.RocketMQ
}
