// Package store implements the gateway directly on an S3 bucket whose
// top-level prefixes are date buckets.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	s4config "github.com/slmtnm/s4json/internal/config"
	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
)

const delimiter = "/"

// objectAPI is the part of the S3 client the store uses.
type objectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Client serves date buckets and JSON files from one S3 bucket.
type S3Client struct {
	api    objectAPI
	bucket string
	suffix string
}

// NewS3Client creates a new S3 client from configuration
func NewS3Client(ctx context.Context, cfg *s4config.Config) (*S3Client, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle // Required for MinIO and some S3-compatible services
	})

	return newS3Client(client, cfg.Bucket, cfg.Suffix), nil
}

func newS3Client(api objectAPI, bucket, suffix string) *S3Client {
	return &S3Client{api: api, bucket: bucket, suffix: suffix}
}

// Bucket is the name of the S3 bucket being browsed.
func (c *S3Client) Bucket() string {
	return c.bucket
}

// ListBuckets returns the top-level prefixes of the bucket, newest first.
func (c *S3Client) ListBuckets(ctx context.Context) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Delimiter: aws.String(delimiter),
	})

	buckets := []string{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, gateway.Retrieval("list buckets", err)
		}
		for _, prefix := range page.CommonPrefixes {
			name := strings.TrimSuffix(aws.ToString(prefix.Prefix), delimiter)
			if name != "" {
				buckets = append(buckets, name)
			}
		}
	}

	slices.SortFunc(buckets, func(a, b string) int { return strings.Compare(b, a) })
	return buckets, nil
}

// ListFiles returns the files under bucket with the configured suffix,
// most recently modified first. An unknown bucket has no files.
func (c *S3Client) ListFiles(ctx context.Context, bucket string) ([]gateway.FileEntry, error) {
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(bucket + delimiter),
	})

	files := []gateway.FileEntry{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, gateway.Retrieval("list files "+bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, c.suffix) || strings.HasSuffix(key, delimiter) {
				continue
			}
			files = append(files, gateway.NewFileEntry(
				key,
				aws.ToInt64(obj.Size),
				aws.ToTime(obj.LastModified),
				aws.ToString(obj.ETag),
			))
		}
	}

	slices.SortStableFunc(files, func(a, b gateway.FileEntry) int {
		return cmp.Compare(b.LastModified.UnixNano(), a.LastModified.UnixNano())
	})
	return files, nil
}

// GetContent downloads the object at path.
func (c *S3Client) GetContent(ctx context.Context, path string) (string, error) {
	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return "", gateway.NotFound(path, err)
		}
		return "", gateway.Retrieval("get "+path, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", gateway.Retrieval("read "+path, err)
	}
	return string(data), nil
}

// HeadBucket checks if the bucket exists and is accessible
func (c *S3Client) HeadBucket(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("bucket '%s' does not exist", c.bucket)
		}
		return fmt.Errorf("failed to access bucket '%s': %w", c.bucket, err)
	}

	logger.Debug().Str("bucket", c.bucket).Msg("bucket reachable")
	return nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}
