package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/reelfeed/engine/internal/config"
)

// SourceResolver turns stored asset references into playable URLs. Assets
// live in an S3-compatible store and play through short-lived presigned GET
// URLs; absolute http(s) references pass through untouched.
type SourceResolver struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// NewSourceResolver configures a resolver targeting the provided object store.
func NewSourceResolver(ctx context.Context, cfg config.ObjectStoreConfig) (*SourceResolver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("media sources: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &SourceResolver{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiry:    15 * time.Minute,
	}, nil
}

// Downloader builds a ranged download manager sharing the resolver's client,
// used by the prefetcher.
func (r *SourceResolver) Downloader() *manager.Downloader {
	return manager.NewDownloader(r.client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
}

// Key extracts the object key from a stored source reference, and reports
// whether the reference points into the object store at all.
func (r *SourceResolver) Key(sourceURL string) (string, bool) {
	if strings.HasPrefix(sourceURL, "http://") || strings.HasPrefix(sourceURL, "https://") {
		return "", false
	}
	if rest, ok := strings.CutPrefix(sourceURL, "s3://"); ok {
		if bucket, key, found := strings.Cut(rest, "/"); found && bucket == r.bucket {
			return key, true
		}
		return "", false
	}
	return strings.TrimPrefix(sourceURL, "/"), true
}

// ResolveSource returns a playable URL for the stored reference.
func (r *SourceResolver) ResolveSource(ctx context.Context, sourceURL string) (string, error) {
	key, ok := r.Key(sourceURL)
	if !ok {
		return sourceURL, nil
	}

	presigned, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		return "", fmt.Errorf("presign playback url: %w", err)
	}

	return presigned.URL, nil
}
