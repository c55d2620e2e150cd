package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 配置信息
type Config struct {
	App             *App             `json:"app" yaml:"app"`
	Log             *Log             `json:"log" yaml:"log"`
	Redis           *Redis           `json:"redis" yaml:"redis"`
	MySQL           *MySQL           `json:"mysql" yaml:"mysql"`
	Jwt             *Jwt             `json:"jwt" yaml:"jwt"`
	Server          *Server          `json:"server" yaml:"server"`
	RocketMQ        *RocketMQConfig  `json:"rocketmq" yaml:"rocketmq"`
	WechatPayConfig *WechatPayConfig `json:"wechat_pay" yaml:"wechat_pay"`
	Credential      *Credential      `json:"credential" yaml:"credential"`
	Notify          *Notify          `json:"notify" yaml:"notify"`
	Reconcile       *Reconcile       `json:"reconcile" yaml:"reconcile"`
}

type Server struct {
	Http int `json:"http" yaml:"http"`
}

func New(filename string) *Config {
	content, err := os.ReadFile(filename)
	if err != nil {
		panic(err)
	}

	conf, err := Parse(content)
	if err != nil {
		panic(fmt.Sprintf("解析 %s 错误: %v", filename, err))
	}
	return conf
}

// Parse 解析 yaml 并补齐默认值
func Parse(content []byte) (*Config, error) {
	var conf Config
	if err := yaml.Unmarshal(content, &conf); err != nil {
		return nil, err
	}
	conf.setDefaults()
	return &conf, nil
}

func (c *Config) setDefaults() {
	if c.App == nil {
		c.App = &App{}
	}
	if c.Log == nil {
		c.Log = &Log{}
	}
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Http == 0 {
		c.Server.Http = 8080
	}
	if c.Jwt == nil {
		c.Jwt = &Jwt{}
	}
	if c.Jwt.ExpireSeconds <= 0 {
		c.Jwt.ExpireSeconds = 7200
	}
	if c.WechatPayConfig == nil {
		c.WechatPayConfig = &WechatPayConfig{}
	}
	c.WechatPayConfig.setDefaults()
	if c.Credential == nil {
		c.Credential = &Credential{}
	}
	c.Credential.setDefaults()
	if c.Notify == nil {
		c.Notify = &Notify{}
	}
	c.Notify.setDefaults()
	if c.Reconcile == nil {
		c.Reconcile = &Reconcile{}
	}
	c.Reconcile.setDefaults()
}

// Validate 启动时校验，缺少支付凭证直接失败
func (c *Config) Validate() error {
	var errs []error
	if c.MySQL == nil || c.MySQL.Host == "" || c.MySQL.Database == "" {
		errs = append(errs, errors.New("mysql: host and database are required"))
	}
	if c.Jwt.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if err := c.WechatPayConfig.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Debug 调试模式
func (c *Config) Debug() bool {
	return c.App.Debug
}
