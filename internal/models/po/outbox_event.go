package po

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent 表示 media.outbox_events 表的实体。
// 事件与业务写入在同一事务内落库，由发件箱中继异步投递到消息代理。
type OutboxEvent struct {
	EventID          uuid.UUID  // 主键
	AggregateID      uuid.UUID  // 聚合根 ID（视频 ID）
	EventType        string     // 事件类型，如 video.processing.requested
	RoutingKey       string     // 投递使用的路由键
	Payload          []byte     // JSON 消息体
	Headers          []byte     // JSON 附加头（可为 nil）
	CreatedAt        time.Time  // 入箱时间
	AvailableAt      time.Time  // 最早可投递时间，退避重试时后移
	DeliveryAttempts int32      // 已尝试投递次数
	LockedBy         *string    // 持有租约的中继实例标识
	LockedAt         *time.Time // 租约获取时间
	PublishedAt      *time.Time // 成功发布时间，非空即完成
	LastError        *string    // 最近一次投递失败原因
}
