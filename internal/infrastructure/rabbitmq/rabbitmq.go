// Package rabbitmq 管理 AMQP 连接、代理拓扑声明与消息发布。
package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config 描述 AMQP 连接与拓扑参数。
type Config struct {
	URL              string
	Exchange         string
	WorkQueue        string
	ResultQueue      string
	DeadLetterQueue  string
	WorkRoutingKey   string
	ResultRoutingKey string
	Prefetch         int
}

// Component 持有 AMQP 连接与发布通道。
// 发布通道由互斥锁保护，消费方通过 ConsumeResults 取得独立通道。
type Component struct {
	cfg  Config
	conn *amqp.Connection

	mu    sync.Mutex
	pubCh *amqp.Channel
	log   *log.Helper
}

// NewComponent 建立连接、声明拓扑并返回组件与清理函数。
func NewComponent(cfg Config, logger log.Logger) (*Component, func(), error) {
	helper := log.NewHelper(logger)

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}

	component := &Component{
		cfg:   cfg,
		conn:  conn,
		pubCh: ch,
		log:   helper,
	}
	cleanup := func() {
		component.mu.Lock()
		if component.pubCh != nil {
			_ = component.pubCh.Close()
		}
		component.mu.Unlock()
		_ = conn.Close()
		helper.Info("rabbitmq connection closed")
	}
	helper.Infof("rabbitmq topology ready: exchange=%s work=%s result=%s dlq=%s",
		cfg.Exchange, cfg.WorkQueue, cfg.ResultQueue, cfg.DeadLetterQueue)
	return component, cleanup, nil
}

// declareTopology 声明 direct 交换机、工作/结果队列与死信队列。
// 两个业务队列都把被拒消息送入默认交换机上的死信队列。
func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	deadLetterArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DeadLetterQueue,
	}

	for _, q := range []struct {
		name string
		key  string
	}{
		{cfg.WorkQueue, cfg.WorkRoutingKey},
		{cfg.ResultQueue, cfg.ResultRoutingKey},
	} {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, deadLetterArgs); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s with key %s: %w", q.name, cfg.Exchange, q.key, err)
		}
	}

	if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter queue %s: %w", cfg.DeadLetterQueue, err)
	}
	return nil
}

// Publish 以持久化投递方式向交换机发布一条 JSON 消息。
func (c *Component) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubCh == nil {
		return fmt.Errorf("publish: channel closed")
	}
	err := c.pubCh.PublishWithContext(ctx,
		c.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", c.cfg.Exchange, routingKey, err)
	}
	return nil
}

// ConsumeResults 打开独立通道消费结果队列，手动确认，按 Prefetch 限流。
// 返回的通道关闭函数应在消费者退出时调用。
func (c *Component) ConsumeResults(consumerTag string) (<-chan amqp.Delivery, func(), error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(
		c.cfg.ResultQueue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", c.cfg.ResultQueue, err)
	}
	closeFn := func() {
		_ = ch.Cancel(consumerTag, false)
		_ = ch.Close()
	}
	return deliveries, closeFn, nil
}
