package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/util"
	"ttrac_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ObjectStore 课程资料的对象存储
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// LocalObjectStore 本地磁盘，开发环境默认
type LocalObjectStore struct {
	Root string
}

// path 把 key 限制在 Root 之内，"../" 会被折叠掉
func (p *LocalObjectStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", errors.Errorf("invalid object key %q", key)
	}
	return filepath.Join(p.Root, clean), nil
}

func (p *LocalObjectStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *LocalObjectStore) Remove(ctx context.Context, key string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *LocalObjectStore) URL(key string) string {
	return "/uploads/" + key
}

type MinioObjectStore struct {
	Bucket string
	Client *minio.Client
}

func NewMinioObjectStore(cfg *config.StorageConfig) (*MinioObjectStore, error) {
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioObjectStore{Bucket: cfg.MinioBucket, Client: client}, nil
}

// EnsureBucket 启动时创建桶（已存在则跳过）
func (p *MinioObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := p.Client.BucketExists(ctx, p.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.Client.MakeBucket(ctx, p.Bucket, minio.MakeBucketOptions{})
}

func (p *MinioObjectStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *MinioObjectStore) Remove(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioObjectStore) URL(key string) string {
	return "/" + p.Bucket + "/" + key
}

type OSSObjectStore struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSObjectStore(cfg *config.StorageConfig) (*OSSObjectStore, error) {
	if cfg.OSSEndpoint == "" || cfg.OSSBucket == "" {
		return nil, errors.New("oss endpoint and bucket are required")
	}
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSObjectStore{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (p *OSSObjectStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := p.Bucket.PutObject(key, reader, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *OSSObjectStore) Remove(ctx context.Context, key string) error {
	return p.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (p *OSSObjectStore) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket.BucketName, p.Endpoint, key)
}

// StorageService 根据配置选择存储后端，远端初始化失败时退回本地磁盘
type StorageService struct {
	Store ObjectStore
}

func NewStorageService(cfg *config.Config) *StorageService {
	var store ObjectStore
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioObjectStore(&cfg.Storage)
		if err == nil {
			if err = p.EnsureBucket(context.Background()); err == nil {
				store = p
			}
		}
		if err != nil {
			logger.Log.Error("MinIO storage unavailable, using local disk", zap.Error(err))
		}
	case util.StorageOSS:
		p, err := NewOSSObjectStore(&cfg.Storage)
		if err != nil {
			logger.Log.Error("OSS storage unavailable, using local disk", zap.Error(err))
		} else {
			store = p
		}
	}

	if store == nil {
		store = &LocalObjectStore{Root: cfg.Storage.LocalPath}
	}
	return &StorageService{Store: store}
}

func (s *StorageService) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Store.Put(ctx, key, reader, size, contentType)
}

func (s *StorageService) Remove(ctx context.Context, key string) error {
	return s.Store.Remove(ctx, key)
}
