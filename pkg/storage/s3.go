package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/TonyV66/LunchSystem-sub000/config"
)

// ErrDisabled 未启用对象存储
var ErrDisabled = errors.New("报表归档未启用")

// Store 报表归档存储
type Store interface {
	// Put 上传对象，返回完整对象键
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// S3Store 基于 S3 兼容接口（AWS S3 / Cloudflare R2 / MinIO）的归档存储
type S3Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	maxRetries uint
	logger     *zap.Logger
}

// NewS3Store 创建归档存储；未启用时返回 ErrDisabled
func NewS3Store(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载对象存储配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 1
	}
	logger.Info("报表归档已启用", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		maxRetries: retries,
		logger:     logger,
	}, nil
}

// Put 上传对象，失败时按指数退避重试
func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	fullKey := key
	if s.prefix != "" {
		fullKey = path.Join(s.prefix, key)
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(fullKey),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			s.logger.Warn("上传归档失败",
				zap.String("key", fullKey), zap.Int("attempt", attempt), zap.Error(err))
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
	)
	if err != nil {
		return "", fmt.Errorf("上传归档 %s 失败: %w", fullKey, err)
	}

	s.logger.Info("报表已归档", zap.String("bucket", s.bucket), zap.String("key", fullKey))
	return fullKey, nil
}
