package upload

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultFolder     = "uploads"
	defaultExpiration = 15 * time.Minute
	maxFileNameLength = 255
)

// Image content types accepted for upload, with the key extension for each
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var allowedFolders = map[string]bool{
	"uploads":         true,
	"products":        true,
	"vendors":         true,
	"delivery-proofs": true,
}

// ObjectStorage issues presigned uploads and recognises its own public URLs
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	PublicURL(storageKey string) string
	IsPublicURL(rawURL string) bool
}

// AuthRequest asks for permission to upload one image
type AuthRequest struct {
	UserID      uuid.UUID
	FileName    string
	ContentType string
	Folder      string
}

// AuthResult tells the client where to PUT the file and where it will be served.
// Token and Signature let clients written against the previous media host keep
// their request shape.
type AuthResult struct {
	UploadURL string
	FileID    string
	PublicURL string
	Expire    int64
	Token     string
	Signature string
}

// Service authorises direct-to-storage image uploads
type Service struct {
	storage    ObjectStorage
	signingKey []byte
	expiration time.Duration
	logger     *zap.Logger
}

// NewService creates an upload service. signingKey signs the compatibility token.
func NewService(storage ObjectStorage, signingKey string, expiration time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiration <= 0 {
		expiration = defaultExpiration
	}
	return &Service{
		storage:    storage,
		signingKey: []byte(signingKey),
		expiration: expiration,
		logger:     logger,
	}
}

// Authorize validates the file and returns a presigned upload for
// <folder>/<userId>/<uuid><ext>
func (s *Service) Authorize(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Only JPEG, PNG, WebP and GIF images can be uploaded")
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" || len(fileName) > maxFileNameLength {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name is required and must be at most 255 characters")
	}

	folder := strings.Trim(strings.ToLower(strings.TrimSpace(req.Folder)), "/")
	if folder == "" {
		folder = defaultFolder
	}
	if !allowedFolders[folder] {
		return nil, shared.NewDomainError("INVALID_FOLDER", "Unknown upload folder: "+folder)
	}

	key := path.Join(folder, req.UserID.String(), uuid.NewString()+ext)
	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.expiration)
	if err != nil {
		s.logger.Error("Failed to presign upload",
			zap.String("user_id", req.UserID.String()),
			zap.String("key", key),
			zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_UNAVAILABLE", "Upload storage is unavailable")
	}

	token := uuid.NewString()
	expire := expiresAt.Unix()

	s.logger.Debug("Issued upload authorization",
		zap.String("user_id", req.UserID.String()),
		zap.String("key", key))

	return &AuthResult{
		UploadURL: uploadURL,
		FileID:    key,
		PublicURL: s.storage.PublicURL(key),
		Expire:    expire,
		Token:     token,
		Signature: s.sign(token, expire),
	}, nil
}

// OwnsURL reports whether rawURL is served from the configured storage
func (s *Service) OwnsURL(rawURL string) bool {
	return s.storage.IsPublicURL(rawURL)
}

func (s *Service) sign(token string, expire int64) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
