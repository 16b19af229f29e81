package services_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/metadata"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type fakeTxManager struct{}

type fakeSession struct{ ctx context.Context }

func (fakeTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, fakeSession{ctx: ctx})
}

func (fakeTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, fakeSession{ctx: ctx})
}

func (fakeSession) Tx() pgx.Tx { return nil }

func (s fakeSession) Context() context.Context { return s.ctx }

func ptrString(v string) *string { return &v }

func ptrBool(v bool) *bool { return &v }

type fakeVideoRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*po.Video

	createErr error
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[uuid.UUID]*po.Video{}}
}

func (r *fakeVideoRepo) put(v *po.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *v
	r.videos[v.VideoID] = &clone
}

func (r *fakeVideoRepo) Create(_ context.Context, _ txmanager.Session, input repositories.CreateVideoInput) (*po.Video, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	now := time.Now().UTC()
	video := &po.Video{
		VideoID:        uuid.New(),
		OwnerID:        input.OwnerID,
		Title:          input.Title,
		Description:    input.Description,
		Source:         input.Source,
		Status:         input.Status,
		FileSize:       input.FileSize,
		IsDownloadable: input.IsDownloadable,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.put(video)
	return video, nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, _ txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[videoID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	clone := *video
	return &clone, nil
}

func (r *fakeVideoRepo) ListByOwner(_ context.Context, input repositories.ListByOwnerInput) ([]*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*po.Video
	for _, video := range r.videos {
		if video.OwnerID != input.OwnerID {
			continue
		}
		if input.TypeFilter != nil && video.Source.Type() != *input.TypeFilter {
			continue
		}
		if input.CursorCreatedAt != nil && !video.CreatedAt.Before(*input.CursorCreatedAt) {
			continue
		}
		clone := *video
		out = append(out, &clone)
	}
	// 按 created_at 降序，模拟仓储排序。
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if input.Limit > 0 && int32(len(out)) > input.Limit {
		out = out[:input.Limit]
	}
	return out, nil
}

func (r *fakeVideoRepo) Update(_ context.Context, _ txmanager.Session, input repositories.UpdateVideoInput) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[input.VideoID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	if input.Title != nil {
		video.Title = *input.Title
	}
	if input.Description != nil {
		video.Description = input.Description
	}
	if input.IsDownloadable != nil {
		video.IsDownloadable = *input.IsDownloadable
	}
	video.UpdatedAt = time.Now().UTC()
	clone := *video
	return &clone, nil
}

func (r *fakeVideoRepo) SetStatus(_ context.Context, _ txmanager.Session, videoID uuid.UUID, status po.VideoStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[videoID]
	if !ok {
		return repositories.ErrVideoNotFound
	}
	video.Status = status
	return nil
}

func (r *fakeVideoRepo) Delete(_ context.Context, _ txmanager.Session, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[videoID]; !ok {
		return repositories.ErrVideoNotFound
	}
	delete(r.videos, videoID)
	return nil
}

type fakeStatusRepo struct {
	mu      sync.Mutex
	entries []*po.ProcessingStatus
	nextSeq int64

	latestErr error
}

func (r *fakeStatusRepo) Append(_ context.Context, _ txmanager.Session, input repositories.AppendStatusInput) (*po.ProcessingStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	entry := &po.ProcessingStatus{
		Seq:       r.nextSeq,
		VideoID:   input.VideoID,
		Status:    input.Status,
		Progress:  input.Progress,
		Message:   input.Message,
		CreatedAt: time.Now().UTC(),
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *fakeStatusRepo) Latest(_ context.Context, videoID uuid.UUID) (*po.ProcessingStatus, error) {
	if r.latestErr != nil {
		return nil, r.latestErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].VideoID == videoID {
			clone := *r.entries[i]
			return &clone, nil
		}
	}
	return nil, repositories.ErrNoStatusHistory
}

func (r *fakeStatusRepo) ListByVideo(_ context.Context, videoID uuid.UUID, _ int32) ([]*po.ProcessingStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*po.ProcessingStatus
	// 与真实仓储一致，最新在前。
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.VideoID == videoID {
			clone := *entry
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeStatusRepo) DeleteByVideo(_ context.Context, _ txmanager.Session, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, entry := range r.entries {
		if entry.VideoID != videoID {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	return nil
}

type fakeOutbox struct {
	mu       sync.Mutex
	messages []repositories.OutboxMessage
}

func (o *fakeOutbox) Enqueue(_ context.Context, _ txmanager.Session, msg repositories.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr     error
	removeErr  error
	presignErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *fakeStorage) Remove(_ context.Context, key string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return fmt.Sprintf("https://storage.example.com/%s?signed=1", key), nil
}

func authedContext(userID uuid.UUID, roles ...string) context.Context {
	return metadata.Inject(context.Background(), metadata.HandlerMetadata{
		UserID: userID.String(),
		Roles:  roles,
	})
}
