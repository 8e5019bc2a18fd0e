package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"wastewatch/backend/internal/config"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps images in a bucket under input/<id>.jpg and output/<id>.jpg.
// Any S3 compatible endpoint works; path-style addressing is used when an
// endpoint is configured.
type S3Store struct {
	Client *s3.Client
	Bucket string
}

func NewS3Store(ctx context.Context, cfg config.Images) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.S3Bucket)}); err != nil {
		return nil, fmt.Errorf("s3 bucket %s: %w", cfg.S3Bucket, err)
	}
	log.WithField("bucket", cfg.S3Bucket).Info("using s3 image store")

	return &S3Store{Client: client, Bucket: cfg.S3Bucket}, nil
}

// Key returns the object key for an image.
func Key(kind Kind, imageID string) (string, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}
	if err := validID(imageID); err != nil {
		return "", err
	}
	return string(kind) + "/" + fileName(imageID), nil
}

func (s *S3Store) Save(ctx context.Context, kind Kind, imageID string, data []byte) error {
	key, err := Key(kind, imageID)
	if err != nil {
		return err
	}
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/jpeg"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, kind Kind, imageID string) (io.ReadCloser, error) {
	key, err := Key(kind, imageID)
	if err != nil {
		return nil, err
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, kind Kind, imageID string) error {
	key, err := Key(kind, imageID)
	if err != nil {
		return err
	}
	_, err = s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
