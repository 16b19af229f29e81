package result

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bionicotaku/lingo-services-media/internal/models/messages"
)

// Config 控制结果消费者的并发与投递上限。
type Config struct {
	Workers       int
	MaxDeliveries int
}

// resultSource 抽象结果队列的消费入口。
type resultSource interface {
	ConsumeResults(consumerTag string) (<-chan amqp.Delivery, func(), error)
}

// ErrSourceClosed 表示消费通道在上下文仍有效时被关闭，通常意味着连接断开。
var ErrSourceClosed = errors.New("result: delivery channel closed")

// Runner 是结果队列的消费循环，按 Workers 并发处理投递。
type Runner struct {
	source  resultSource
	handler *Handler
	cfg     Config
	metrics *metrics
	log     *log.Helper

	// 普通重投不会累计 x-death，这里在进程内按消息键补计投递次数。
	mu       sync.Mutex
	attempts map[string]int64
}

// RunnerParams 注入 Runner 所需依赖。
type RunnerParams struct {
	Source  resultSource
	Handler *Handler
	Config  Config
	Logger  log.Logger
	Metrics *metrics
}

// NewRunner 构造结果消费循环。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("result: source is required")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("result: handler is required")
	}
	cfg := params.Config
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	m := params.Metrics
	if m == nil {
		m = newMetrics()
	}
	return &Runner{
		source:   params.Source,
		handler:  params.Handler,
		cfg:      cfg,
		metrics:  m,
		log:      log.NewHelper(params.Logger),
		attempts: make(map[string]int64),
	}, nil
}

// Run 启动消费循环，直到 ctx 取消或消费通道关闭。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	deliveries, stop, err := r.source.ConsumeResults("media-result-consumer")
	if err != nil {
		return fmt.Errorf("start result consumer: %w", err)
	}
	defer stop()

	r.log.WithContext(ctx).Infof("result consumer started: workers=%d max_deliveries=%d",
		r.cfg.Workers, r.cfg.MaxDeliveries)

	var wg sync.WaitGroup
	wg.Add(r.cfg.Workers)
	for i := 0; i < r.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					r.process(ctx, d)
				}
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		r.log.Info("result consumer stopped")
		return err
	}
	// 上下文未取消但通道已关，结果队列不再被消费，向生命周期钩子上报。
	r.log.Error("result consumer stopped: delivery channel closed")
	return ErrSourceClosed
}

// process 处理单条投递并完成确认。确认失败只记录日志，由代理按未确认消息重投。
func (r *Runner) process(ctx context.Context, d amqp.Delivery) {
	msg, err := messages.DecodeResult(d.Body)
	if err != nil {
		r.log.WithContext(ctx).Warnf("drop malformed result message: %v", err)
		r.metrics.recordDrop(ctx, "malformed")
		r.finish(d.Nack(false, false))
		return
	}

	key := messageKey(msg)
	if err := r.handler.Handle(ctx, msg); err != nil {
		if errors.Is(err, ErrUnknownVideo) {
			r.forget(key)
			r.log.WithContext(ctx).Warnf("drop result for unknown video %s", msg.VideoID)
			r.metrics.recordDrop(ctx, "unknown_video")
			r.finish(d.Nack(false, false))
			return
		}
		if r.exhausted(key, d) {
			r.forget(key)
			r.log.WithContext(ctx).Errorf("give up result for video %s after %d deliveries: %v",
				msg.VideoID, r.cfg.MaxDeliveries, err)
			r.metrics.recordDrop(ctx, "exhausted")
			r.finish(d.Nack(false, false))
			return
		}
		r.log.WithContext(ctx).Warnf("requeue result for video %s: %v", msg.VideoID, err)
		r.finish(d.Nack(false, true))
		return
	}

	r.forget(key)
	r.finish(d.Ack(false))
}

func messageKey(msg *messages.ResultMessage) string {
	return msg.VideoID.String() + "|" + string(msg.Status) + "|" + msg.ReportedAt.UTC().Format("2006-01-02T15:04:05.999999999")
}

func (r *Runner) forget(key string) {
	r.mu.Lock()
	delete(r.attempts, key)
	r.mu.Unlock()
}

func (r *Runner) finish(err error) {
	if err != nil {
		r.log.Errorf("settle delivery failed: %v", err)
	}
}

// exhausted 记录一次失败并判断投递次数是否达到上限。
// 死信回流的次数取 x-death 头，进程内重投取本地计数，两者取较大值。
func (r *Runner) exhausted(key string, d amqp.Delivery) bool {
	r.mu.Lock()
	r.attempts[key]++
	local := r.attempts[key]
	r.mu.Unlock()

	attempts := local
	if fromHeader := xDeathCount(d.Headers) + 1; fromHeader > attempts {
		attempts = fromHeader
	}
	return attempts >= int64(r.cfg.MaxDeliveries)
}

func xDeathCount(headers amqp.Table) int64 {
	raw, ok := headers["x-death"]
	if !ok {
		return 0
	}
	entries, ok := raw.([]any)
	if !ok {
		return 0
	}
	var total int64
	for _, entry := range entries {
		table, ok := entry.(amqp.Table)
		if !ok {
			continue
		}
		switch count := table["count"].(type) {
		case int64:
			total += count
		case int32:
			total += int64(count)
		case int:
			total += int64(count)
		}
	}
	return total
}
