package rocketmq

import (
	"Formpay/config"
	"Formpay/pkg/log"
	"context"
	"fmt"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"go.uber.org/zap"
)

func init() {
	rlog.SetLogLevel("error")
}

// Producer 同步发送到固定 topic
type Producer struct {
	producer rocketmq.Producer
	topic    string
}

func NewProducer(cfg *config.RocketMQConfig) (*Producer, func(), error) {
	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(cfg.NameServer)),
		producer.WithGroupName(cfg.Producer.Group),
		producer.WithRetry(cfg.Producer.Retry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("new rocketmq producer: %w", err)
	}
	if err = p.Start(); err != nil {
		return nil, nil, fmt.Errorf("start rocketmq producer: %w", err)
	}
	log.L.Info("init producer success", zap.String("topic", cfg.Topic))

	cleanup := func() {
		if err := p.Shutdown(); err != nil {
			log.L.Warn("shutdown producer", zap.Error(err))
		}
	}
	return &Producer{producer: p, topic: cfg.Topic}, cleanup, nil
}

// Publish 以 key 作为消息 keys，便于按订单号检索
func (p *Producer) Publish(ctx context.Context, key string, body []byte) error {
	msg := primitive.NewMessage(p.topic, body)
	msg.WithKeys([]string{key})

	res, err := p.producer.SendSync(ctx, msg)
	if err != nil {
		return err
	}
	if res.Status != primitive.SendOK {
		return fmt.Errorf("rocketmq send status %d", res.Status)
	}
	log.L.Info("send message success", zap.String("msg_id", res.MsgID), zap.String("key", key))
	return nil
}
