// S3-compatible backend for AudioKeep.
//
// All recordings live in a single bucket under an optional key prefix.
// Credentials are resolved via the standard AWS credential chain
// (env vars, ~/.aws/credentials, IAM role, etc.) unless static credentials
// are configured. A custom endpoint plus path-style addressing supports
// MinIO-style S3-compatible services.

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API defines the subset of the AWS S3 client interface that the provider
// uses. This allows mocking in tests.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Presigner defines the subset of the S3 presign client used for
// time-limited access URLs.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Provider implements the Provider interface against an S3-compatible
// object store via the AWS SDK for Go v2.
type S3Provider struct {
	// Bucket is the bucket name.
	Bucket string
	// Prefix is the key prefix applied to every object.
	Prefix string
	// client is the S3 client (satisfying the S3API interface).
	client S3API
	// presigner produces time-limited GET URLs.
	presigner S3Presigner
}

// S3Options configures an S3Provider.
type S3Options struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Provider creates a new S3Provider and verifies the bucket is
// accessible.
func NewS3Provider(ctx context.Context, opts S3Options) (*S3Provider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))

	// Use static credentials if provided, otherwise fall back to default chain.
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}
	if opts.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)

	p := &S3Provider{
		Bucket:    opts.Bucket,
		Prefix:    opts.Prefix,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}

	// Verify the bucket is accessible.
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(opts.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot access S3 bucket %q: %w", opts.Bucket, err)
	}

	slog.Info("S3 storage provider initialized", "bucket", opts.Bucket, "region", opts.Region, "prefix", opts.Prefix)
	return p, nil
}

// NewS3ProviderWithClient creates an S3Provider with pre-configured clients.
// This is primarily used for testing with mocks.
func NewS3ProviderWithClient(bucket, prefix string, client S3API, presigner S3Presigner) *S3Provider {
	return &S3Provider{
		Bucket:    bucket,
		Prefix:    prefix,
		client:    client,
		presigner: presigner,
	}
}

// s3Key maps an AudioKeep storage key to the bucket key.
func (p *S3Provider) s3Key(key string) string {
	return p.Prefix + key
}

// Upload writes audio data to the bucket.
func (p *S3Provider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.Bucket),
		Key:           aws.String(p.s3Key(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %q to S3: %w", key, err)
	}
	return key, nil
}

// Download retrieves the full object content for a key.
func (p *S3Provider) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.s3Key(key)),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, fmt.Errorf("downloading %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("getting %q from S3: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %q from S3: %w", key, err)
	}
	return data, nil
}

// SignedURL returns a time-limited pre-signed GET URL for the key.
func (p *S3Provider) SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.s3Key(key)),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("presigning URL for %q: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes an object from the bucket.
// Idempotent: S3 DeleteObject does not error on missing keys.
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.s3Key(key)),
	})
	if err != nil {
		return fmt.Errorf("deleting %q from S3: %w", key, err)
	}
	return nil
}

// TestConnection writes, reads back, and deletes a probe object.
func (p *S3Provider) TestConnection(ctx context.Context) bool {
	probeKey := ".probe/connection-test"
	if _, err := p.Upload(ctx, probeKey, []byte("probe"), "text/plain"); err != nil {
		return false
	}
	data, err := p.Download(ctx, probeKey)
	if err != nil || string(data) != "probe" {
		p.Delete(ctx, probeKey)
		return false
	}
	return p.Delete(ctx, probeKey) == nil
}

// isAWSNotFound checks if an AWS error is a 404/NoSuchKey/NotFound error.
func isAWSNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "404" || code == "NoSuchBucket" {
			return true
		}
	}
	// Also check for types.NoSuchKey.
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	// Check HTTP status code via ResponseError.
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == 404 {
			return true
		}
	}
	return false
}

// Ensure S3Provider implements Provider at compile time.
var _ Provider = (*S3Provider)(nil)
