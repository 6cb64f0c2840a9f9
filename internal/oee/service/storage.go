package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bitfantasy/nimo-oee/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStorage 图片对象存储，返回可访问地址
type ImageStorage interface {
	Put(ctx context.Context, prefix, fileName string, reader io.Reader, size int64, contentType string) (string, error)
}

// MinioImageStorage MinIO 实现
type MinioImageStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioImageStorage 未配置 endpoint 时返回 nil
func NewMinioImageStorage(cfg config.MinIOConfig) (*MinioImageStorage, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化MinIO失败: %w", err)
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}
	return &MinioImageStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// EnsureBucket 桶不存在时创建
func (m *MinioImageStorage) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *MinioImageStorage) Put(ctx context.Context, prefix, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	name := objectName(prefix, fileName)
	_, err := m.client.PutObject(ctx, m.bucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, name), nil
}

// objectName prefix/uuid.ext
func objectName(prefix, fileName string) string {
	return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.New().String(), strings.ToLower(path.Ext(fileName)))
}
