package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Client wraps the S3 client with archive-specific functionality.
// Archiving is best-effort: a failed write is logged, never surfaced
// to the upload that produced it.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates a new S3 archive client
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("CSV archiving is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services want path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	return &Client{
		s3Client: s3Client,
		config:   cfg,
	}, nil
}

// ArchivePayload writes one raw upload body to the archive bucket.
func (c *Client) ArchivePayload(ctx context.Context, ownerID string, body []byte) error {
	key := c.config.ObjectKey(ownerID, uuid.NewString(), time.Now())

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload to s3: %w", err)
	}

	log.Infof("[S3Archive] Archived upload payload for %s as %s", ownerID, key)
	return nil
}

var (
	globalClient *Client
	clientOnce   sync.Once
)

// Archive writes the payload via the global client if archiving is
// enabled. Safe to call from a goroutine; all failures are only
// logged.
func Archive(ownerID string, body []byte) {
	clientOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			log.Warnf("[S3Archive] invalid configuration, archiving disabled: %v", err)
			return
		}
		if !cfg.IsEnabled() {
			return
		}
		client, err := NewClient(cfg)
		if err != nil {
			log.Warnf("[S3Archive] client setup failed, archiving disabled: %v", err)
			return
		}
		globalClient = client
	})

	if globalClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := globalClient.ArchivePayload(ctx, ownerID, body); err != nil {
		log.Warnf("[S3Archive] %v", err)
	}
}
