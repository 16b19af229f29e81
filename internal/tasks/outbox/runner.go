// Package outbox 实现事务性 Outbox 的投递循环：周期性认领待发布事件，
// 发布到消息代理后标记完成，失败时按指数退避重新排期。
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
)

// Config 控制投递循环的批量、节奏与退避参数。
type Config struct {
	BatchSize      int
	TickInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
	LockTTL        time.Duration
}

// eventStore 抽象 Outbox 仓储，便于测试替换。
type eventStore interface {
	ClaimPending(ctx context.Context, availableBefore, staleBefore time.Time, limit int, lockToken string) ([]*po.OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, lockToken string, publishedAt time.Time) error
	Reschedule(ctx context.Context, eventID uuid.UUID, lockToken string, nextAvailable time.Time, lastErr string) error
	CountPending(ctx context.Context) (int64, error)
}

// brokerPublisher 抽象消息发布端。
type brokerPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
}

// Runner 是单实例的 Outbox 投递循环。每个实例持有独立的锁令牌，
// 崩溃后未发布的租约在 LockTTL 过期后可被其他实例回收。
type Runner struct {
	store     eventStore
	publisher brokerPublisher
	cfg       Config
	lockToken string
	metrics   *metrics
	log       *log.Helper
}

// RunnerParams 注入 Runner 所需依赖。
type RunnerParams struct {
	Store     eventStore
	Publisher brokerPublisher
	Config    Config
	Logger    log.Logger
}

// NewRunner 构造投递循环。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("outbox: store is required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("outbox: publisher is required")
	}
	cfg := params.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &Runner{
		store:     params.Store,
		publisher: params.Publisher,
		cfg:       cfg,
		lockToken: uuid.NewString(),
		metrics:   newMetrics(params.Store),
		log:       log.NewHelper(params.Logger),
	}, nil
}

// Run 启动循环，直到 ctx 取消。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.log.WithContext(ctx).Infof("outbox relay started: batch_size=%d tick=%s lock_token=%s",
		r.cfg.BatchSize, r.cfg.TickInterval, r.lockToken)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.tick(ctx); err != nil && ctx.Err() == nil {
				r.log.WithContext(ctx).Errorf("outbox tick failed: %v", err)
			}
		}
	}
}

// tick 认领一批到期事件并逐条投递。
func (r *Runner) tick(ctx context.Context) error {
	now := time.Now()
	events, err := r.store.ClaimPending(ctx, now, now.Add(-r.cfg.LockTTL), r.cfg.BatchSize, r.lockToken)
	if err != nil {
		return fmt.Errorf("claim pending events: %w", err)
	}
	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.deliver(ctx, event)
	}
	return nil
}

func (r *Runner) deliver(ctx context.Context, event *po.OutboxEvent) {
	publishCtx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()

	err := r.publisher.Publish(publishCtx, event.RoutingKey, event.Payload, decodeHeaders(event.Headers))
	if err != nil {
		r.metrics.recordPublish(ctx, false)
		next := time.Now().Add(r.backoff(event.DeliveryAttempts))
		if rErr := r.store.Reschedule(ctx, event.EventID, r.lockToken, next, err.Error()); rErr != nil {
			r.log.WithContext(ctx).Errorf("reschedule event %s failed: %v (publish error: %v)", event.EventID, rErr, err)
			return
		}
		r.log.WithContext(ctx).Warnf("publish event %s failed, retry at %s: %v", event.EventID, next.Format(time.RFC3339), err)
		return
	}

	if err := r.store.MarkPublished(ctx, event.EventID, r.lockToken, time.Now()); err != nil {
		// 发布成功但标记失败，事件会被重投；消费端须按幂等处理。
		r.log.WithContext(ctx).Errorf("mark event %s published failed: %v", event.EventID, err)
		return
	}
	r.metrics.recordPublish(ctx, true)
}

// backoff 按已投递次数计算下一次可用等待，封顶 MaxBackoff。
func (r *Runner) backoff(attempts int32) time.Duration {
	d := r.cfg.InitialBackoff
	for i := int32(0); i < attempts; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	if d > r.cfg.MaxBackoff {
		return r.cfg.MaxBackoff
	}
	return d
}

// decodeHeaders 将 jsonb 头部解码为 AMQP Table，解码失败时忽略头部。
func decodeHeaders(raw []byte) amqp.Table {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil
	}
	return amqp.Table(m)
}
