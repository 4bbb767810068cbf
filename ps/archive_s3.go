// S3 archive support.
package ps

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/glog"
)

// S3Config contains S3 authentication configuration
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

// S3API is the subset of the S3 client the archiver uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads storage files to s3://bucket/prefix/<name>/<timestamp>.
type S3Archiver struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver creates an archiver for an s3://bucket[/prefix] URL.
func NewS3Archiver(ctx context.Context, url string, cfg S3Config) (*S3Archiver, error) {
	bucket, prefix, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	client, err := getS3Client(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	return NewS3ArchiverWithClient(client, bucket, prefix), nil
}

func NewS3ArchiverWithClient(client S3API, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

func (archiver *S3Archiver) Archive(ctx context.Context, name string, filePath string) error {
	key := path.Join(archiver.prefix, archiveKey(name, archiver.now()))

	err := withRetry(ctx, "S3Archiver.Archive", isTransientS3Error, func(ctx context.Context) error {
		f, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = archiver.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(archiver.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	glog.Infof("S3Archiver.Archive: Archived %s to s3://%s/%s", name, archiver.bucket, key)
	return nil
}

func isTransientS3Error(err error) bool {
	return err != nil && !os.IsNotExist(err)
}

// parseS3URL parses s3://bucket[/prefix] into bucket and prefix parts
func parseS3URL(url string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(url, "s3://")
	trimmed = strings.TrimPrefix(trimmed, "S3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

// getS3Client creates an S3 client with the given configuration
func getS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	// Set region if provided
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Set explicit credentials if provided
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}
