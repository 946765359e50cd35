package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Store stores blobs in an S3 (or S3-compatible) bucket.
type S3Store struct {
	logger zerolog.Logger
	client *s3.Client
	bucket string
	region string
}

// S3Options configures the S3 store. Endpoint is optional and enables
// MinIO-style deployments.
type S3Options struct {
	Bucket   string
	Region   string
	Endpoint string
}

// NewS3Store builds a store from the ambient AWS credential chain.
func NewS3Store(ctx context.Context, logger zerolog.Logger, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		logger: logger.With().Str("component", "s3-store").Logger(),
		client: client,
		bucket: opts.Bucket,
		region: opts.Region,
	}, nil
}

func (s *S3Store) UploadFile(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	s.logger.Info().Str("key", key).Str("url", url).Msg("uploaded blob")
	return url, nil
}

func (s *S3Store) DownloadFile(ctx context.Context, key, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := f.ReadFrom(out.Body); err != nil {
		return fmt.Errorf("writing %s: %w", localPath, err)
	}

	s.logger.Debug().Str("key", key).Str("path", localPath).Msg("downloaded blob")
	return nil
}
