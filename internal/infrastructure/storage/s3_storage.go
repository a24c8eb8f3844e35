// Package storage fetches listing images for upload injection.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	infraconfig "github.com/CarsonReik/Compr-sub000/internal/infrastructure/config"
)

// Ensure S3ImageSource implements platform.ImageSource
var _ platform.ImageSource = (*S3ImageSource)(nil)

// ErrImageNotFound reports a reference whose object or URL no longer exists.
var ErrImageNotFound = errors.New("storage: image not found")

// maxImageBytes caps a single fetched image. The marketplaces reject
// anything near this size anyway.
const maxImageBytes = 20 << 20

// S3ImageSource resolves listing image references to their bytes.
// References carrying a storage key are read from the object store
// (AWS S3 or any S3-compatible backend such as RustFS or MinIO);
// references carrying only an external URL are fetched over HTTP.
type S3ImageSource struct {
	client     *s3.Client
	bucket     string
	httpClient *http.Client
	logger     *zap.Logger
}

// S3ImageSourceOption is a functional option for configuring S3ImageSource
type S3ImageSourceOption func(*S3ImageSource)

// WithLogger sets a custom logger for S3ImageSource
func WithLogger(logger *zap.Logger) S3ImageSourceOption {
	return func(s *S3ImageSource) {
		s.logger = logger
	}
}

// WithHTTPClient sets the client used for external URL fetches
func WithHTTPClient(c *http.Client) S3ImageSourceOption {
	return func(s *S3ImageSource) {
		s.httpClient = c
	}
}

// NewS3ImageSource creates a new S3ImageSource from configuration.
// It supports any S3-compatible storage backend (AWS S3, RustFS, MinIO, etc.)
func NewS3ImageSource(cfg *infraconfig.StorageConfig, opts ...S3ImageSourceOption) (*S3ImageSource, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	// Custom endpoints get a protocol prefix when missing; empty means AWS.
	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	src := &S3ImageSource{
		client:     client,
		bucket:     cfg.Bucket,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(src)
	}

	return src, nil
}

// Fetch resolves an image reference to its bytes. Storage keys take
// precedence over external URLs when a reference carries both.
func (s *S3ImageSource) Fetch(ctx context.Context, ref listing.ImageRef) (*platform.Image, error) {
	if ref.IsZero() {
		return nil, errors.New("image reference is empty")
	}
	if ref.Key != "" {
		return s.fetchObject(ctx, ref)
	}
	return s.fetchURL(ctx, ref)
}

func (s *S3ImageSource) fetchObject(ctx context.Context, ref listing.ImageRef) (*platform.Image, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) || strings.Contains(err.Error(), "NoSuchKey") {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref.Key)
		}
		return nil, fmt.Errorf("failed to fetch image object: %w", err)
	}
	defer out.Body.Close()

	data, err := readImageBody(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image object %s: %w", ref.Key, err)
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = aws.ToString(out.ContentType)
	}
	return buildImage(ref, data, contentType), nil
}

func (s *S3ImageSource) fetchURL(ctx context.Context, ref listing.ImageRef) (*platform.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image URL: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref.URL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := readImageBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image URL %s: %w", ref.URL, err)
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	return buildImage(ref, data, contentType), nil
}

// GetBucket returns the bucket name
func (s *S3ImageSource) GetBucket() string {
	return s.bucket
}

func readImageBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds the %d byte limit", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("image body is empty")
	}
	return data, nil
}

func buildImage(ref listing.ImageRef, data []byte, contentType string) *platform.Image {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &platform.Image{
		Data:        data,
		Filename:    imageFilename(ref),
		ContentType: contentType,
	}
}

func imageFilename(ref listing.ImageRef) string {
	if ref.Filename != "" {
		return ref.Filename
	}
	if ref.Key != "" {
		return path.Base(ref.Key)
	}
	if u, err := url.Parse(ref.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "image"
}
