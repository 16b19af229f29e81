package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxMessage 描述需要写入 outbox_events 的事件数据。
type OutboxMessage struct {
	AggregateID uuid.UUID
	EventType   string
	RoutingKey  string
	Payload     []byte
	Headers     []byte
}

// OutboxRepository 维护事务性发件箱表。事件随业务事务入箱，
// 中继通过租约认领后发布到消息代理。
type OutboxRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewOutboxRepository 构造 OutboxRepository 实例（供 Wire 注入使用）。
func NewOutboxRepository(db *pgxpool.Pool, logger log.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

func (r *OutboxRepository) querier(sess txmanager.Session) querier {
	if sess != nil {
		return sess.Tx()
	}
	return r.db
}

// Enqueue 在业务事务内插入 Outbox 事件。必须与业务写入共用同一 Session。
func (r *OutboxRepository) Enqueue(ctx context.Context, sess txmanager.Session, msg OutboxMessage) error {
	if _, err := r.querier(sess).Exec(ctx, `
		INSERT INTO media.outbox_events (aggregate_id, event_type, routing_key, payload, headers)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.AggregateID, msg.EventType, msg.RoutingKey, msg.Payload, msg.Headers,
	); err != nil {
		r.log.WithContext(ctx).Errorf("enqueue outbox event failed: aggregate_id=%s type=%s err=%v", msg.AggregateID, msg.EventType, err)
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// ClaimPending 认领一批待发布事件并加上租约。
// availableBefore 过滤退避中的事件；staleBefore 之前的旧租约视为失效，可被抢占。
// 使用 FOR UPDATE SKIP LOCKED 支持多实例并发认领。
func (r *OutboxRepository) ClaimPending(ctx context.Context, availableBefore, staleBefore time.Time, limit int, lockToken string) ([]*po.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE media.outbox_events SET locked_by = $4, locked_at = now()
		WHERE event_id IN (
			SELECT event_id FROM media.outbox_events
			WHERE published_at IS NULL
			  AND available_at <= $1
			  AND (locked_by IS NULL OR locked_at < $2)
			ORDER BY available_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING event_id, aggregate_id, event_type, routing_key, payload, headers,
			created_at, available_at, delivery_attempts, locked_by, locked_at, published_at, last_error`,
		availableBefore, staleBefore, limit, lockToken,
	)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []*po.OutboxEvent
	for rows.Next() {
		var event po.OutboxEvent
		if err := rows.Scan(
			&event.EventID, &event.AggregateID, &event.EventType, &event.RoutingKey,
			&event.Payload, &event.Headers, &event.CreatedAt, &event.AvailableAt,
			&event.DeliveryAttempts, &event.LockedBy, &event.LockedAt,
			&event.PublishedAt, &event.LastError,
		); err != nil {
			return nil, fmt.Errorf("claim outbox events: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	return events, nil
}

// MarkPublished 将事件标记为已发布，仅当租约仍归本实例持有时生效。
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID uuid.UUID, lockToken string, publishedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE media.outbox_events
		SET published_at = $3, locked_by = NULL, locked_at = NULL, last_error = NULL
		WHERE event_id = $1 AND locked_by = $2 AND published_at IS NULL`,
		eventID, lockToken, publishedAt,
	)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark outbox event published: lock lost for event %s", eventID)
	}
	return nil
}

// Reschedule 投递失败后释放租约，后移可投递时间并累加尝试次数。
func (r *OutboxRepository) Reschedule(ctx context.Context, eventID uuid.UUID, lockToken string, nextAvailable time.Time, lastErr string) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE media.outbox_events
		SET available_at = $3, delivery_attempts = delivery_attempts + 1,
		    locked_by = NULL, locked_at = NULL, last_error = $4
		WHERE event_id = $1 AND locked_by = $2 AND published_at IS NULL`,
		eventID, lockToken, nextAvailable, lastErr,
	); err != nil {
		return fmt.Errorf("reschedule outbox event: %w", err)
	}
	return nil
}

// CountPending 返回当前未发布的 Outbox 事件数量，供指标上报。
func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM media.outbox_events WHERE published_at IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending outbox events: %w", err)
	}
	return count, nil
}
