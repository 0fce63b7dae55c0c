package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/davtree/internal/logger"
	"github.com/marmos91/davtree/pkg/content"
	contentMemory "github.com/marmos91/davtree/pkg/content/memory"
	contentS3 "github.com/marmos91/davtree/pkg/content/s3"
	"github.com/marmos91/davtree/pkg/notify"
	"github.com/marmos91/davtree/pkg/tree"
	treeBadger "github.com/marmos91/davtree/pkg/tree/badger"
	treeMemory "github.com/marmos91/davtree/pkg/tree/memory"
	"github.com/mitchellh/mapstructure"
)

// CreateTreeStore creates a tree store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/tree/memory (in-memory storage, ephemeral)
//   - "badger": Uses pkg/tree/badger (BadgerDB storage, persistent)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Tree store configuration
//
// Returns:
//   - tree.Store: Initialized tree store
//   - error: Configuration or initialization error
func CreateTreeStore(ctx context.Context, cfg *StoreConfig) (tree.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return treeMemory.NewMemoryStore(), nil
	case "badger":
		return createBadgerTreeStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown tree store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerTreeStore creates a BadgerDB-backed tree store.
func createBadgerTreeStore(ctx context.Context, options map[string]any) (tree.Store, error) {
	type BadgerTreeStoreOptions struct {
		Path         string        `mapstructure:"path"`
		UsedBytesTTL time.Duration `mapstructure:"used_bytes_ttl"`
	}

	var storeOpts BadgerTreeStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger tree store options: %w", err)
	}

	if storeOpts.Path == "" {
		return nil, fmt.Errorf("badger tree store: path is required")
	}

	store, err := treeBadger.NewBadgerStore(ctx, treeBadger.Config{
		DBPath:       storeOpts.Path,
		UsedBytesTTL: storeOpts.UsedBytesTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger tree store: %w", err)
	}

	return store, nil
}

// CreateContentStore creates a content store based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/content/memory (in-memory blobs, ephemeral)
//   - "s3": Uses pkg/content/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content store configuration
//
// Returns:
//   - content.ContentStore: Initialized content store
//   - error: Configuration or initialization error
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.ContentStore, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return contentMemory.NewMemoryContentStore(), nil
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q (supported: memory, s3)", cfg.Type)
	}
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type S3ContentStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Set custom endpoint if provided (for MinIO, Localstack, etc.)
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Configure retries for resilience against temporary S3 failures
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Force path-style addressing for compatibility with MinIO/Localstack
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Content Store
	// ========================================================================

	store, err := contentS3.NewS3ContentStore(ctx, contentS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateNotificationSink creates a notification sink based on configuration.
//
// Supported sinks:
//   - "log": writes each event to the debug log
//   - "channel": delivers events on a buffered channel, dropping on overflow
//   - "none": discards events (the engine's built-in no-op sink)
func CreateNotificationSink(cfg *NotificationsConfig) (tree.NotificationSink, error) {
	switch cfg.Sink {
	case "log":
		return notify.NewLogSink(), nil
	case "channel":
		return notify.NewChannelSink(cfg.BufferSize), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notification sink: %q (supported: log, channel, none)", cfg.Sink)
	}
}
