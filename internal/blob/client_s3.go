package blob

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client implements Client against aws-sdk-go-v2. Transient errors are
// retried inside the SDK up to the configured attempt budget; an error
// escaping any method means the budget is gone or the error is terminal.
type S3Client struct {
	s3Client *s3.Client
	config   *S3Config
}

func NewS3Client(ctx context.Context, cfg *S3Config) (*S3Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          2 * cfg.maxConns(),
			MaxIdleConnsPerHost:   cfg.maxConns(),
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), cfg.maxAttempts())
		}),
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	} else if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	awsClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		s3Client: awsClient,
		config:   cfg,
	}, nil
}

func (s *S3Client) PutFile(ctx context.Context, params *PutFileParams) (*PutFileResult, error) {
	file, err := os.Open(params.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", params.LocalPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", params.LocalPath, err)
	}

	key := s.config.BucketSpec.RemoteKey(params.Key)
	input := &s3.PutObjectInput{
		Bucket:        &s.config.BucketSpec.Bucket,
		Key:           &key,
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	}
	if params.Tagging != "" {
		input.Tagging = &params.Tagging
	}

	resp, err := s.s3Client.PutObject(ctx, input)
	if err != nil {
		return nil, err
	}

	// s3.PutObjectOutput does not carry LastModified
	return &PutFileResult{
		Key:          key,
		Size:         info.Size(),
		ETag:         strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	remoteKey := s.config.BucketSpec.RemoteKey(key)
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.BucketSpec.Bucket,
		Key:    &remoteKey,
	})
	return err
}

func (s *S3Client) Exists(ctx context.Context, key string) (bool, error) {
	remoteKey := s.config.BucketSpec.RemoteKey(key)
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.config.BucketSpec.Bucket,
		Key:    &remoteKey,
	})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Client) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{
		Bucket: &s.config.BucketSpec.Bucket,
	}
	if s.config.BucketSpec.Prefix != "" {
		input.Prefix = &s.config.BucketSpec.Prefix
	}

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, s.config.BucketSpec.RelativeKey(aws.ToString(obj.Key)))
		}
	}

	return keys, nil
}

func (s *S3Client) CheckBucket(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &s.config.BucketSpec.Bucket,
	})
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, s.config.BucketSpec.Bucket)
		}
		return fmt.Errorf("head bucket %s: %w", s.config.BucketSpec.Bucket, err)
	}
	return nil
}

// check that S3Client implements the Client interface
var _ Client = (*S3Client)(nil)
