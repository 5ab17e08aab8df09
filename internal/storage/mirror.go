package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/config"
	"github.com/local/pdfsplitter/internal/split"
)

// Mirror copies produced split files to S3 and removes the objects of
// outputs that were deleted locally.
type Mirror struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewMirror builds the S3 client from the default AWS chain. Static keys in
// cfg take precedence over the chain.
func NewMirror(ctx context.Context, cfg config.MirrorConfig) (*Mirror, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("mirror: no bucket configured")
	}
	var opts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewMirrorFromClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func NewMirrorFromClient(client *s3.Client, bucket, prefix string) *Mirror {
	return &Mirror{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

// Key maps a local file to its object key: prefix/parent-folder/file.
func (m *Mirror) Key(localPath string) string {
	clean := filepath.Clean(localPath)
	parent := filepath.Base(filepath.Dir(clean))
	if parent == "." || parent == string(filepath.Separator) {
		parent = ""
	}
	return path.Join(m.prefix, parent, filepath.Base(clean))
}

// Sync uploads every file produced by res and deletes the keys of removed
// stale outputs. Pass-through entries are skipped: nothing new was written
// for them. Failures are collected and do not stop the remaining files.
func (m *Mirror) Sync(ctx context.Context, res split.JobResult) error {
	var errs []error
	for _, of := range res.OutputFiles {
		if of.StartPage == 0 {
			continue
		}
		if err := m.Upload(ctx, of.Path); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range res.Deleted {
		if err := m.Delete(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Mirror) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("mirror %s: %w", localPath, err)
	}
	defer f.Close()

	key := m.Key(localPath)
	_, err = m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("mirror %s to s3://%s/%s: %w", localPath, m.bucket, key, err)
	}
	log.Debug().Str("path", localPath).Str("key", key).Msg("mirrored split file")
	return nil
}

func (m *Mirror) Delete(ctx context.Context, localPath string) error {
	key := m.Key(localPath)
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", m.bucket, key, err)
	}
	log.Debug().Str("path", localPath).Str("key", key).Msg("removed mirrored file")
	return nil
}

// HeadBucket checks that the bucket is reachable with the configured
// credentials.
func (m *Mirror) HeadBucket(ctx context.Context) error {
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(m.bucket)})
	return err
}
