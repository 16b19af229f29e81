// Package objectstorage 基于 MinIO 客户端封装视频文件的对象存储访问。
package objectstorage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config 描述对象存储连接与桶信息。
type Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	RequestTimeout time.Duration
}

// Component 持有 MinIO 客户端与目标桶。
type Component struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
	log     *log.Helper
}

// NewComponent 构造存储组件并确保目标桶存在。
func NewComponent(ctx context.Context, cfg Config, logger log.Logger) (*Component, error) {
	helper := log.NewHelper(logger)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		helper.Infof("bucket created: %s", cfg.Bucket)
	}

	return &Component{
		client:  client,
		bucket:  cfg.Bucket,
		timeout: timeout,
		log:     helper,
	}, nil
}

// Put 上传对象。
func (c *Component) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.client.PutObject(opCtx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	c.log.WithContext(ctx).Debugf("object stored: key=%s size=%d", key, size)
	return nil
}

// Remove 删除对象。对象不存在时视为成功。
func (c *Component) Remove(ctx context.Context, key string) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := c.client.RemoveObject(opCtx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// PresignGet 生成限时的预签名下载地址。
func (c *Component) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	url, err := c.client.PresignedGetObject(opCtx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return url.String(), nil
}
