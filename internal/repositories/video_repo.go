// Package repositories 实现数据访问层，基于 pgx 手写 SQL 访问 media schema。
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVideoNotFound 表示请求的视频不存在。
var ErrVideoNotFound = errors.New("video not found")

// querier 抽象 *pgxpool.Pool 与 pgx.Tx 的公共查询接口。
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository 提供视频相关的持久化访问能力。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository 实例（供 Wire 注入使用）。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

func (r *VideoRepository) querier(sess txmanager.Session) querier {
	if sess != nil {
		return sess.Tx()
	}
	return r.db
}

// CreateVideoInput 表示创建视频的输入参数。
type CreateVideoInput struct {
	OwnerID        uuid.UUID
	Title          string
	Description    *string
	Source         po.VideoSource
	Status         po.VideoStatus
	FileSize       *int64
	IsDownloadable bool
}

// UpdateVideoInput 表示可选更新字段的集合，nil 字段保持原值。
type UpdateVideoInput struct {
	VideoID        uuid.UUID
	Title          *string
	Description    *string
	IsDownloadable *bool
}

// ApplyResultInput 表示结果消费者回写的字段。
type ApplyResultInput struct {
	VideoID       uuid.UUID
	Status        po.VideoStatus
	ProcessedPath *string
	FileSize      *int64
	Duration      *int32
}

// ListByOwnerInput 描述按归属用户分页查询的参数。
type ListByOwnerInput struct {
	OwnerID         uuid.UUID
	Limit           int32
	CursorCreatedAt *time.Time
	CursorVideoID   *uuid.UUID
	TypeFilter      *po.VideoType
}

const videoColumns = `video_id, owner_id, title, description, video_type, storage_key,
	youtube_url, youtube_video_id, status, processed_path, thumbnail_path,
	file_size, duration_seconds, is_downloadable, created_at, updated_at`

func scanVideo(row pgx.Row) (*po.Video, error) {
	var (
		v      po.Video
		cols   mappers.SourceColumns
		status string
	)
	err := row.Scan(
		&v.VideoID, &v.OwnerID, &v.Title, &v.Description,
		&cols.VideoType, &cols.StorageKey, &cols.YouTubeURL, &cols.YouTubeVideoID,
		&status, &v.ProcessedPath, &v.ThumbnailPath,
		&v.FileSize, &v.Duration, &v.IsDownloadable, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	source, err := mappers.SourceFromColumns(cols)
	if err != nil {
		return nil, fmt.Errorf("map video row: %w", err)
	}
	v.Source = source
	v.Status, err = mappers.StatusFromColumn(status)
	if err != nil {
		return nil, fmt.Errorf("map video row: %w", err)
	}
	return &v, nil
}

// Create 创建新视频记录，video_id 由数据库自动生成。
func (r *VideoRepository) Create(ctx context.Context, sess txmanager.Session, input CreateVideoInput) (*po.Video, error) {
	cols := mappers.ColumnsFromSource(input.Source)
	row := r.querier(sess).QueryRow(ctx, `
		INSERT INTO media.videos
			(owner_id, title, description, video_type, storage_key, youtube_url, youtube_video_id,
			 status, file_size, is_downloadable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+videoColumns,
		input.OwnerID, input.Title, input.Description,
		cols.VideoType, cols.StorageKey, cols.YouTubeURL, cols.YouTubeVideoID,
		string(input.Status), input.FileSize, input.IsDownloadable,
	)
	video, err := scanVideo(row)
	if err != nil {
		r.log.WithContext(ctx).Errorf("create video failed: title=%s err=%v", input.Title, err)
		return nil, fmt.Errorf("create video: %w", err)
	}
	r.log.WithContext(ctx).Infof("video created: video_id=%s type=%s", video.VideoID, video.Source.Type())
	return video, nil
}

// GetByID 按主键查询视频，未命中返回 ErrVideoNotFound。
func (r *VideoRepository) GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	row := r.querier(sess).QueryRow(ctx,
		`SELECT `+videoColumns+` FROM media.videos WHERE video_id = $1`, videoID)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// ListByOwner 按 (created_at, video_id) 降序游标分页查询用户视频。
func (r *VideoRepository) ListByOwner(ctx context.Context, input ListByOwnerInput) ([]*po.Video, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + videoColumns + ` FROM media.videos WHERE owner_id = $1`
	args := []any{input.OwnerID}
	if input.TypeFilter != nil {
		args = append(args, string(*input.TypeFilter))
		query += fmt.Sprintf(" AND video_type = $%d", len(args))
	}
	if input.CursorCreatedAt != nil && input.CursorVideoID != nil {
		args = append(args, *input.CursorCreatedAt, *input.CursorVideoID)
		query += fmt.Sprintf(" AND (created_at, video_id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, video_id DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*po.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// Update 更新可编辑字段，未命中返回 ErrVideoNotFound。
func (r *VideoRepository) Update(ctx context.Context, sess txmanager.Session, input UpdateVideoInput) (*po.Video, error) {
	row := r.querier(sess).QueryRow(ctx, `
		UPDATE media.videos SET
			title           = COALESCE($2, title),
			description     = COALESCE($3, description),
			is_downloadable = COALESCE($4, is_downloadable),
			updated_at      = now()
		WHERE video_id = $1
		RETURNING `+videoColumns,
		input.VideoID, input.Title, input.Description, input.IsDownloadable,
	)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

// SetStatus 更新总体状态，未命中返回 ErrVideoNotFound。
func (r *VideoRepository) SetStatus(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, status po.VideoStatus) error {
	tag, err := r.querier(sess).Exec(ctx,
		`UPDATE media.videos SET status = $2, updated_at = now() WHERE video_id = $1`,
		videoID, string(status))
	if err != nil {
		return fmt.Errorf("set video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// ApplyResult 回写处理结果：状态与产物路径、媒体元数据。
// 非空字段覆盖，nil 字段保持原值。
func (r *VideoRepository) ApplyResult(ctx context.Context, sess txmanager.Session, input ApplyResultInput) error {
	tag, err := r.querier(sess).Exec(ctx, `
		UPDATE media.videos SET
			status           = $2,
			processed_path   = COALESCE($3, processed_path),
			file_size        = COALESCE($4, file_size),
			duration_seconds = COALESCE($5, duration_seconds),
			updated_at       = now()
		WHERE video_id = $1`,
		input.VideoID, string(input.Status),
		input.ProcessedPath, input.FileSize, input.Duration,
	)
	if err != nil {
		return fmt.Errorf("apply processing result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// Delete 删除视频行，未命中返回 ErrVideoNotFound。
func (r *VideoRepository) Delete(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) error {
	tag, err := r.querier(sess).Exec(ctx,
		`DELETE FROM media.videos WHERE video_id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	r.log.WithContext(ctx).Infof("video deleted: video_id=%s", videoID)
	return nil
}
