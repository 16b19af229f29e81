package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoStatusHistory 表示视频尚无任何处理状态记录。
var ErrNoStatusHistory = errors.New("no processing status history")

// ProcessingStatusRepository 维护只增的视频处理状态历史。
type ProcessingStatusRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewProcessingStatusRepository 构造 ProcessingStatusRepository 实例（供 Wire 注入使用）。
func NewProcessingStatusRepository(db *pgxpool.Pool, logger log.Logger) *ProcessingStatusRepository {
	return &ProcessingStatusRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

func (r *ProcessingStatusRepository) querier(sess txmanager.Session) querier {
	if sess != nil {
		return sess.Tx()
	}
	return r.db
}

// AppendStatusInput 表示追加一条历史记录的输入。
type AppendStatusInput struct {
	VideoID  uuid.UUID
	Status   po.VideoStatus
	Progress int32
	Message  *string
}

const statusColumns = `seq, video_id, status, progress, message, created_at`

func scanStatus(row pgx.Row) (*po.ProcessingStatus, error) {
	var (
		entry  po.ProcessingStatus
		status string
	)
	err := row.Scan(&entry.Seq, &entry.VideoID, &status, &entry.Progress, &entry.Message, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.Status, err = mappers.StatusFromColumn(status)
	if err != nil {
		return nil, fmt.Errorf("map status row: %w", err)
	}
	return &entry, nil
}

// Append 追加历史记录。历史只增不改，不提供更新或删除单条的方法。
func (r *ProcessingStatusRepository) Append(ctx context.Context, sess txmanager.Session, input AppendStatusInput) (*po.ProcessingStatus, error) {
	row := r.querier(sess).QueryRow(ctx, `
		INSERT INTO media.video_processing_statuses (video_id, status, progress, message)
		VALUES ($1, $2, $3, $4)
		RETURNING `+statusColumns,
		input.VideoID, string(input.Status), input.Progress, input.Message,
	)
	entry, err := scanStatus(row)
	if err != nil {
		r.log.WithContext(ctx).Errorf("append status failed: video_id=%s status=%s err=%v", input.VideoID, input.Status, err)
		return nil, fmt.Errorf("append processing status: %w", err)
	}
	return entry, nil
}

// Latest 返回视频最新的一条历史记录，无记录时返回 ErrNoStatusHistory。
func (r *ProcessingStatusRepository) Latest(ctx context.Context, videoID uuid.UUID) (*po.ProcessingStatus, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+statusColumns+`
		FROM media.video_processing_statuses
		WHERE video_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, videoID)
	entry, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoStatusHistory
		}
		return nil, fmt.Errorf("latest processing status: %w", err)
	}
	return entry, nil
}

// ListByVideo 返回视频的历史记录，最新在前。
func (r *ProcessingStatusRepository) ListByVideo(ctx context.Context, videoID uuid.UUID, limit int32) ([]*po.ProcessingStatus, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+statusColumns+`
		FROM media.video_processing_statuses
		WHERE video_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`, videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("list processing statuses: %w", err)
	}
	defer rows.Close()

	var entries []*po.ProcessingStatus
	for rows.Next() {
		entry, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("list processing statuses: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list processing statuses: %w", err)
	}
	return entries, nil
}

// DeleteByVideo 在删除视频的事务内清理其全部历史。
func (r *ProcessingStatusRepository) DeleteByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) error {
	if _, err := r.querier(sess).Exec(ctx,
		`DELETE FROM media.video_processing_statuses WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete processing statuses: %w", err)
	}
	return nil
}
