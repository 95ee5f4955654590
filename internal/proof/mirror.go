// Package proof mirrors completion proof artifacts from the chat server
// to S3-compatible object storage so the forwarding destination can link
// them.
package proof

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrDisabled is returned when no object storage is configured.
var ErrDisabled = errors.New("proof mirroring disabled")

const maxArtifactSize = 20 << 20 // 20 MiB

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string // base URL the destination audience can reach
}

// Config holds mirror configuration.
type Config struct {
	S3          S3Config
	FileBaseURL string // chat server file download endpoint
	FileToken   string // bearer token for file downloads
}

// Mirror downloads a proof file from the chat server and uploads it to
// the configured bucket.
type Mirror struct {
	cfg    Config
	client s3Client
	http   *http.Client
	logger *slog.Logger
}

func NewMirror(cfg Config, logger *slog.Logger) *Mirror {
	m := &Mirror{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether object storage is configured.
func (m *Mirror) Enabled() bool {
	return m.client != nil
}

// Mirror fetches the artifact and stores it under a per-chore key,
// returning the public URL of the stored copy.
func (m *Mirror) Mirror(ctx context.Context, choreID int64, fileID string) (string, error) {
	if m.client == nil {
		return "", ErrDisabled
	}

	data, err := m.fetch(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("fetch proof %s: %w", fileID, err)
	}

	key := fmt.Sprintf("proofs/%d/%s.png", choreID, uuid.NewString())
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}

	m.logger.Info("proof mirrored", "chore_id", choreID, "file_id", fileID, "key", key)
	return m.publicURL(key), nil
}

func (m *Mirror) fetch(ctx context.Context, fileID string) ([]byte, error) {
	url := strings.TrimRight(m.cfg.FileBaseURL, "/") + "/" + fileID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if m.cfg.FileToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.FileToken)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("artifact exceeds %d bytes", maxArtifactSize)
	}
	return data, nil
}

func (m *Mirror) publicURL(key string) string {
	if m.cfg.S3.PublicURL != "" {
		return strings.TrimRight(m.cfg.S3.PublicURL, "/") + "/" + key
	}
	if m.cfg.S3.Endpoint != "" {
		return strings.TrimRight(m.cfg.S3.Endpoint, "/") + "/" + m.cfg.S3.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.cfg.S3.Bucket, m.cfg.S3.Region, key)
}
