package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	UploadFile(ctx context.Context, key string, localPath string, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetURL(key string) string
}

// ObjectKey 媒体文件的存储路径 <user>/<module>/<sequence>/<unix-ms><ext>
func ObjectKey(prefix, userID, moduleID, sequenceID, ext string, now time.Time) string {
	parts := []string{}
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, userID)
	if moduleID != "" {
		parts = append(parts, moduleID)
	}
	if sequenceID != "" {
		parts = append(parts, sequenceID)
	}
	parts = append(parts, fmt.Sprintf("%d%s", now.UnixMilli(), ext))
	return path.Join(parts...)
}

func publicURL(base, fallback, key string) string {
	if base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	return fallback + key
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) target(key string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	return dst, nil
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.target(key)
	if err != nil {
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
	return p.GetURL(key), nil
}

func (p *LocalStorageProvider) UploadFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	dst, err := p.target(key)
	if err != nil {
		return "", err
	}
	if localPath == dst {
		return p.GetURL(key), nil
	}

	srcFile, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(p.Config.LocalPath, filepath.FromSlash(key)))
}

func (p *LocalStorageProvider) GetURL(key string) string {
	return publicURL(p.Config.PublicBaseURL, "/uploads/", key)
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *MinioStorageProvider) UploadFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	_, err := p.Client.FPutObject(ctx, p.Config.MinioBucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(key string) string {
	return publicURL(p.Config.PublicBaseURL, "/"+p.Config.MinioBucket+"/", key)
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *OSSStorageProvider) UploadFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObjectFromFile(key, localPath, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(key)
}

func (p *OSSStorageProvider) GetURL(key string) string {
	return publicURL(p.Config.PublicBaseURL, fmt.Sprintf("https://%s.%s/", p.Config.OSSBucket, p.Config.OSSEndpoint), key)
}

// StorageService 存储服务
type StorageService struct {
	Provider StorageProvider
}

// NewStorageService 远端存储初始化失败时回退到本地存储
func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case "minio":
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("MinIO init failed, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	case "oss":
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("OSS init failed, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider}
}

func (s *StorageService) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Provider.Upload(ctx, key, reader, size, contentType)
}

func (s *StorageService) UploadFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	return s.Provider.UploadFile(ctx, key, localPath, contentType)
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Provider.Delete(ctx, key)
}

func (s *StorageService) GetURL(key string) string {
	return s.Provider.GetURL(key)
}
