package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Fetcher downloads the two dataset objects from S3 into the data
// directory so the loader can parse them like local files.
type S3Fetcher struct {
	bucket        string
	salesKey      string
	customersKey  string
	salesPath     string
	customersPath string
	downloader    *manager.Downloader
	log           zerolog.Logger
}

// S3Config holds the settings needed to construct an S3 fetcher.
type S3Config struct {
	Bucket        string
	Region        string
	SalesKey      string
	CustomersKey  string
	SalesPath     string
	CustomersPath string
}

// NewS3Fetcher builds a fetcher using the default AWS credential chain.
func NewS3Fetcher(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Fetcher{
		bucket:        cfg.Bucket,
		salesKey:      cfg.SalesKey,
		customersKey:  cfg.CustomersKey,
		salesPath:     cfg.SalesPath,
		customersPath: cfg.CustomersPath,
		downloader:    manager.NewDownloader(client),
		log:           log.With().Str("component", "s3_fetcher").Logger(),
	}, nil
}

// Fetch downloads both objects. A failed download leaves any existing local
// file untouched so the loader can fall back to the previous copy.
func (f *S3Fetcher) Fetch(ctx context.Context) error {
	if err := f.download(ctx, f.salesKey, f.salesPath); err != nil {
		return fmt.Errorf("failed to download sales dataset: %w", err)
	}
	if err := f.download(ctx, f.customersKey, f.customersPath); err != nil {
		return fmt.Errorf("failed to download customer dataset: %w", err)
	}
	return nil
}

func (f *S3Fetcher) download(ctx context.Context, key, dest string) error {
	// Temp file in the destination directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".beacon-dataset-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = f.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("s3 download of %s/%s failed: %w", f.bucket, key, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move downloaded file into place: %w", err)
	}

	f.log.Info().Str("bucket", f.bucket).Str("key", key).Str("dest", dest).Msg("Dataset object downloaded")
	return nil
}
