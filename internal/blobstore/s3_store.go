package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var _ Store = (*S3Store)(nil)

// s3API is the subset of the S3 client the store calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	PutObjectAcl(ctx context.Context, in *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures an S3Store. Endpoint is only needed for
// S3-compatible services such as MinIO.
type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

type S3Store struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3Store loads credentials from the default AWS chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, opts), nil
}

func newS3Store(client s3API, opts S3Options) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: publicBaseURL(opts),
	}
}

func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) MakePublic(ctx context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("publish object %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) objectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

func publicBaseURL(opts S3Options) string {
	if base := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"); base != "" {
		return base
	}
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, region)
}
