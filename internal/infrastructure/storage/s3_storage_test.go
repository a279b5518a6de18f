package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/artisanmarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Endpoint:          "http://localhost:9000",
		Region:            "us-east-1",
		Bucket:            "artisan-media",
		AccessKeyID:       "test-key",
		SecretAccessKey:   "test-secret",
		UsePathStyle:      true,
		PresignExpiration: 10 * time.Minute,
		PublicBaseURL:     "http://localhost:9000/artisan-media",
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKeyID = "" }, "access key is required"},
		{"missing secret", func(c *config.StorageConfig) { c.SecretAccessKey = "" }, "secret key is required"},
		{"missing public base", func(c *config.StorageConfig) { c.PublicBaseURL = "" }, "public base url is required"},
		{"bad public base", func(c *config.StorageConfig) { c.PublicBaseURL = "not a url" }, "invalid storage public base url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validStorageConfig()
			tt.mutate(&cfg)
			_, err := NewS3ObjectStorage(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestS3ObjectStorage_GenerateUploadURL(t *testing.T) {
	s, err := NewS3ObjectStorage(context.Background(), validStorageConfig())
	require.NoError(t, err)
	assert.Equal(t, "artisan-media", s.GetBucket())

	key := "products/user-1/7b1e.jpg"
	rawURL, expiresAt, err := s.GenerateUploadURL(context.Background(), key, "image/jpeg", 0)
	require.NoError(t, err)

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/artisan-media/"+key, u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	_, _, err = s.GenerateUploadURL(context.Background(), "", "image/jpeg", time.Minute)
	assert.Error(t, err)
}

func TestS3ObjectStorage_PublicURL(t *testing.T) {
	cfg := validStorageConfig()
	cfg.PublicBaseURL = "https://cdn.artisanmarket.test/media/"
	s, err := NewS3ObjectStorage(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.artisanmarket.test/media/proofs/u/1.png", s.PublicURL("proofs/u/1.png"))
	assert.True(t, s.IsPublicURL("https://cdn.artisanmarket.test/media/proofs/u/1.png"))

	for _, bad := range []string{
		"https://evil.test/media/proofs/u/1.png",
		"http://cdn.artisanmarket.test/media/proofs/u/1.png",
		"https://cdn.artisanmarket.test/other/1.png",
		"https://cdn.artisanmarket.test/media/",
		"https://cdn.artisanmarket.test/media/../secret.png",
		"/media/proofs/u/1.png",
		"",
	} {
		assert.False(t, s.IsPublicURL(bad), bad)
	}
}

func TestStubObjectStorage(t *testing.T) {
	s := NewStubObjectStorage("")
	rawURL, _, err := s.GenerateUploadURL(context.Background(), "proofs/u/a.webp", "image/webp", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rawURL, "http://localhost:8080/media/upload/proofs/u/a.webp?"))
	assert.Contains(t, rawURL, "contentType=image%2Fwebp")

	assert.Equal(t, "http://localhost:8080/media/proofs/u/a.webp", s.PublicURL("proofs/u/a.webp"))
	assert.True(t, s.IsPublicURL(s.PublicURL("proofs/u/a.webp")))

	_, _, err = s.GenerateUploadURL(context.Background(), "", "image/webp", time.Minute)
	assert.Error(t, err)
}
