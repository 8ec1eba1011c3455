package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

// S3API is the subset of *s3.Client the cursor store uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3CursorStore keeps one JSON object per consumer key in a bucket
type S3CursorStore struct {
	client S3API
	bucket string
	prefix string
}

// NewS3CursorStore wraps an existing client
func NewS3CursorStore(client S3API, bucket, prefix string) (*S3CursorStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("no bucket provided for cursor store")
	}
	return &S3CursorStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// NewS3CursorStoreFromConfig loads AWS configuration and builds the store.
// Static keys are used when both are set, otherwise the default credential chain.
func NewS3CursorStoreFromConfig(ctx context.Context, cfg Config) (*S3CursorStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return NewS3CursorStore(client, cfg.S3Bucket, cfg.S3Prefix)
}

func (s *S3CursorStore) key(consumerKey string) string {
	return s.prefix + url.PathEscape(consumerKey) + ".json"
}

func (s *S3CursorStore) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "S3."+op,
		trace.WithAttributes(
			attribute.String("s3.operation", op),
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", key),
		),
	)
}

// Load implements journal.CursorStore
func (s *S3CursorStore) Load(ctx context.Context, consumerKey string) (string, error) {
	key := s.key(consumerKey)
	ctx, span := s.startSpan(ctx, "GetObject", key)
	defer span.End()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFoundError(err) {
		return "", ErrCursorNotFound
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get cursor object")
		return "", fmt.Errorf("failed to get cursor object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read cursor object: %w", err)
	}

	var record cursorRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return record.NextURL, nil
}

// Save implements journal.CursorStore
func (s *S3CursorStore) Save(ctx context.Context, consumerKey, nextURL string) error {
	key := s.key(consumerKey)
	ctx, span := s.startSpan(ctx, "PutObject", key)
	defer span.End()

	data, err := json.Marshal(cursorRecord{NextURL: nextURL, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put cursor object")
		return fmt.Errorf("failed to put cursor object: %w", err)
	}
	return nil
}

// Delete removes the cursor object
func (s *S3CursorStore) Delete(ctx context.Context, consumerKey string) error {
	key := s.key(consumerKey)
	ctx, span := s.startSpan(ctx, "DeleteObject", key)
	defer span.End()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFoundError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete cursor object")
		return fmt.Errorf("failed to delete cursor object: %w", err)
	}
	return nil
}

func (s *S3CursorStore) Close() error { return nil }

// isNotFoundError reports whether err is a missing key or bucket object
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
