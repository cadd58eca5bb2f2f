package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/menta2k/face-cropper/pkg/errors"
)

// DefaultPresignTTL is how long presigned GET URLs stay valid
const DefaultPresignTTL = 60 * time.Minute

// S3Config configures the S3 uploader. Credentials come from the default
// AWS chain (environment, shared config, instance role).
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string // for S3-compatible stores
	UsePathStyle bool
	PresignTTL   time.Duration
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignGetAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 puts objects into a bucket and returns presigned GET URLs
type S3 struct {
	client  putObjectAPI
	presign presignGetAPI
	bucket  string
	ttl     time.Duration
}

var _ Uploader = (*S3)(nil)

// NewS3 creates an S3 uploader from the default AWS configuration
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeStorage, "s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3(client, s3.NewPresignClient(client), cfg.Bucket, cfg.PresignTTL), nil
}

func newS3(client putObjectAPI, presign presignGetAPI, bucket string, ttl time.Duration) *S3 {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &S3{client: client, presign: presign, bucket: bucket, ttl: ttl}
}

// Upload puts data at key and returns a presigned GET URL for it
func (s *S3) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "invalid key")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "failed to upload s3://%s/%s", s.bucket, key)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "failed to presign s3://%s/%s", s.bucket, key)
	}
	return req.URL, nil
}
