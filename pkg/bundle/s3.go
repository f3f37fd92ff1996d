package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectGetter is the part of the S3 client the source uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 client used for bundles.
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the service endpoint, e.g. for MinIO.
	Endpoint string

	// AccessKey and SecretKey select static credentials. Anonymous
	// requests are made when both are empty.
	AccessKey string
	SecretKey string

	// PathStyle addresses buckets as endpoint/bucket/key.
	PathStyle bool
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "lazyblog",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// S3Source reads bundles from an S3 bucket.
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3 creates a source reading prefix+object from bucket.
func NewS3(client ObjectGetter, bucket, prefix string) (*S3Source, error) {
	if bucket == "" {
		return nil, errors.New("bundle: s3 bucket is required")
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Source{client: client, bucket: bucket, prefix: prefix}, nil
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, object string) (io.ReadCloser, error) {
	key := s.prefix + object
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("s3 get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}
