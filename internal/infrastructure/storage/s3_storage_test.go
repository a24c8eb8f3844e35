package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/config"
)

// jpegBytes carries the JPEG magic so content sniffing recognizes it.
var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)

func TestNewS3ImageSource_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ImageSource(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3ImageSource(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		}
		_, err := NewS3ImageSource(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3ImageSource(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates source", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:       "test-bucket",
			AccessKey:    "test-key",
			SecretKey:    "test-secret",
			Region:       "us-east-1",
			Endpoint:     "http://localhost:9000",
			UsePathStyle: true,
		}
		src, err := NewS3ImageSource(cfg)
		require.NoError(t, err)
		require.NotNil(t, src)
		assert.Equal(t, "test-bucket", src.GetBucket())
	})

	t.Run("endpoint without protocol gets https prefix", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "storage.internal:9000",
		}
		src, err := NewS3ImageSource(cfg)
		require.NoError(t, err)
		require.NotNil(t, src)
	})
}

func TestS3ImageSourceOptions(t *testing.T) {
	baseConfig := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}

	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		src, err := NewS3ImageSource(baseConfig, WithLogger(logger))
		require.NoError(t, err)
		assert.NotNil(t, src.logger)
	})

	t.Run("WithHTTPClient sets the URL fetch client", func(t *testing.T) {
		client := &http.Client{Timeout: time.Second}
		src, err := NewS3ImageSource(baseConfig, WithHTTPClient(client))
		require.NoError(t, err)
		assert.Same(t, client, src.httpClient)
	})
}

func TestS3ImageSource_Fetch_EmptyRef(t *testing.T) {
	cfg := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	src, err := NewS3ImageSource(cfg)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), listing.ImageRef{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference is empty")
}

func TestS3ImageSource_FetchObject(t *testing.T) {
	// An S3-compatible endpoint with path-style addressing: the object
	// lives at /<bucket>/<key>, anything else is a NoSuchKey error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crosslist-images/listings/abc/front.jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegBytes)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
	}))
	defer server.Close()

	cfg := &config.StorageConfig{
		Bucket:       "crosslist-images",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     server.URL,
		UsePathStyle: true,
	}
	src, err := NewS3ImageSource(cfg)
	require.NoError(t, err)

	t.Run("reads the object behind the storage key", func(t *testing.T) {
		img, err := src.Fetch(context.Background(), listing.ImageRef{Key: "listings/abc/front.jpg"})
		require.NoError(t, err)
		assert.Equal(t, jpegBytes, img.Data)
		assert.Equal(t, "front.jpg", img.Filename)
		assert.Equal(t, "image/jpeg", img.ContentType)
	})

	t.Run("reference content type wins over the stored one", func(t *testing.T) {
		img, err := src.Fetch(context.Background(), listing.ImageRef{
			Key:         "listings/abc/front.jpg",
			Filename:    "original-upload.jpeg",
			ContentType: "image/pjpeg",
		})
		require.NoError(t, err)
		assert.Equal(t, "original-upload.jpeg", img.Filename)
		assert.Equal(t, "image/pjpeg", img.ContentType)
	})

	t.Run("missing object maps to ErrImageNotFound", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), listing.ImageRef{Key: "listings/gone/void.jpg"})
		assert.ErrorIs(t, err, ErrImageNotFound)
	})

	t.Run("storage key takes precedence over an external URL", func(t *testing.T) {
		img, err := src.Fetch(context.Background(), listing.ImageRef{
			Key: "listings/abc/front.jpg",
			URL: "https://cdn.example.com/unreachable.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, jpegBytes, img.Data)
	})
}

func TestS3ImageSource_FetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photos/jacket.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegBytes)
		case "/photos/unheadered.png":
			_, _ = w.Write(placeholderPNG)
		case "/photos/empty.jpg":
			w.WriteHeader(http.StatusOK)
		case "/photos/flaky.jpg":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := &config.StorageConfig{
		Bucket:    "crosslist-images",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	src, err := NewS3ImageSource(cfg)
	require.NoError(t, err)

	t.Run("fetches external URL when no storage key is set", func(t *testing.T) {
		img, err := src.Fetch(context.Background(), listing.ImageRef{URL: server.URL + "/photos/jacket.jpg"})
		require.NoError(t, err)
		assert.Equal(t, jpegBytes, img.Data)
		assert.Equal(t, "jacket.jpg", img.Filename)
		assert.Equal(t, "image/jpeg", img.ContentType)
	})

	t.Run("sniffs the content type when nothing declares one", func(t *testing.T) {
		img, err := src.Fetch(context.Background(), listing.ImageRef{URL: server.URL + "/photos/unheadered.png"})
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.ContentType)
	})

	t.Run("404 maps to ErrImageNotFound", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), listing.ImageRef{URL: server.URL + "/photos/deleted.jpg"})
		assert.ErrorIs(t, err, ErrImageNotFound)
	})

	t.Run("other statuses surface as errors", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), listing.ImageRef{URL: server.URL + "/photos/flaky.jpg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), listing.ImageRef{URL: server.URL + "/photos/empty.jpg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}

func TestImageFilename(t *testing.T) {
	tests := []struct {
		name string
		ref  listing.ImageRef
		want string
	}{
		{
			name: "explicit filename wins",
			ref:  listing.ImageRef{Filename: "front.jpg", Key: "listings/abc/1.jpg", URL: "https://cdn.example.com/2.jpg"},
			want: "front.jpg",
		},
		{
			name: "storage key basename",
			ref:  listing.ImageRef{Key: "listings/abc/1.jpg"},
			want: "1.jpg",
		},
		{
			name: "URL path basename",
			ref:  listing.ImageRef{URL: "https://cdn.example.com/photos/2.jpg?w=1200"},
			want: "2.jpg",
		},
		{
			name: "bare host falls back to a generic name",
			ref:  listing.ImageRef{URL: "https://cdn.example.com/"},
			want: "image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageFilename(tt.ref))
		})
	}
}
