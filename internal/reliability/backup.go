// Package reliability publishes run artifacts to S3-compatible storage.
package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	appconfig "github.com/quantfold/sectorscope/internal/config"
)

// ArtifactUploader uploads the output directory after a successful run.
// Works against AWS S3 or any S3-compatible store (R2, MinIO) via a custom
// endpoint.
type ArtifactUploader struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	now      func() time.Time
	log      zerolog.Logger
}

// NewArtifactUploader builds an uploader from backup configuration.
// Credentials come from the standard AWS env vars, or
// SECTORSCOPE_S3_ACCESS_KEY / SECTORSCOPE_S3_SECRET_KEY when set.
func NewArtifactUploader(ctx context.Context, cfg *appconfig.BackupConfig, log zerolog.Logger) (*ArtifactUploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if key := os.Getenv("SECTORSCOPE_S3_ACCESS_KEY"); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, os.Getenv("SECTORSCOPE_S3_SECRET_KEY"), ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ArtifactUploader{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		now:      time.Now,
		log:      log.With().Str("service", "artifact_backup").Logger(),
	}, nil
}

// UploadDir uploads every regular file in dir under
// <prefix>/<YYYY-MM-DD>/<filename>. Individual failures abort the upload;
// the pipeline treats backup failure as a warning, not a fatal condition.
func (u *ArtifactUploader) UploadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read artifact directory: %w", err)
	}

	datePrefix := u.now().Format("2006-01-02")
	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		key := filepath.ToSlash(filepath.Join(u.prefix, datePrefix, entry.Name()))

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		uploaded++
	}

	u.log.Info().Int("files", uploaded).Str("bucket", u.bucket).Str("prefix", datePrefix).
		Msg("Uploaded run artifacts")
	return nil
}
