package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// StubObjectStorage hands out unsigned local URLs. It is used in development
// when no bucket is configured.
type StubObjectStorage struct {
	BaseURL string
}

// NewStubObjectStorage creates a new StubObjectStorage
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/media"
	}
	return &StubObjectStorage{BaseURL: strings.TrimRight(baseURL, "/")}
}

// GenerateUploadURL returns an unsigned upload URL for storageKey
func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{}
	q.Set("contentType", contentType)
	q.Set("expires", expiresAt.UTC().Format(time.RFC3339))
	return s.BaseURL + "/upload/" + storageKey + "?" + q.Encode(), expiresAt, nil
}

// PublicURL returns the URL the object is served from
func (s *StubObjectStorage) PublicURL(storageKey string) string {
	return publicURL(s.BaseURL, storageKey)
}

// IsPublicURL reports whether rawURL points under BaseURL
func (s *StubObjectStorage) IsPublicURL(rawURL string) bool {
	return hasBase(s.BaseURL, rawURL)
}
