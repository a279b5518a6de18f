package order

import (
	"context"
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProofFolder is the upload folder delivery photos are signed into. Keys under
// it are "delivery-proofs/<userID>/<file>".
const ProofFolder = "delivery-proofs"

// ProofStorage maps upload keys to the URLs the platform serves them from
type ProofStorage interface {
	PublicURL(storageKey string) string
}

// objectChecker is implemented by storages that can confirm an upload landed
type objectChecker interface {
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// objectDeleter is implemented by storages that can remove a replaced upload
type objectDeleter interface {
	DeleteObject(ctx context.Context, storageKey string) error
}

// DeliveryProofRequest carries an uploaded proof photo
type DeliveryProofRequest struct {
	ImageURL string
	FileID   string
	Note     string
}

// DeliveryProofResult is the order after the upload plus the proof's re-upload gate
type DeliveryProofResult struct {
	Order         OrderView          `json:"order"`
	DeliveryProof *DeliveryProofView `json:"deliveryProof"`
}

// DeliveryProofService records vendor delivery photos
type DeliveryProofService struct {
	orders    order.OrderRepository
	storage   ProofStorage
	publisher shared.EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// DeliveryProofOption configures a DeliveryProofService
type DeliveryProofOption func(*DeliveryProofService)

// WithProofClock overrides time.Now for the re-upload window
func WithProofClock(now func() time.Time) DeliveryProofOption {
	return func(s *DeliveryProofService) { s.now = now }
}

// NewDeliveryProofService creates a new DeliveryProofService. publisher may be nil.
func NewDeliveryProofService(
	orders order.OrderRepository,
	storage ProofStorage,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...DeliveryProofOption,
) *DeliveryProofService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DeliveryProofService{orders: orders, storage: storage, publisher: publisher, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores or replaces the vendor's proof. The file must sit under the
// caller's own delivery-proofs folder and imageURL must be the public URL of
// that file. A replacement is accepted only from the vendor who uploaded first
// and only within order.ReuploadWindow of the first upload.
func (s *DeliveryProofService) Upload(ctx context.Context, actor Actor, orderID uuid.UUID, req DeliveryProofRequest) (*DeliveryProofResult, error) {
	if actor.VendorID == nil {
		return nil, shared.NewDomainError(shared.ErrForbidden.Code, "Only vendors can upload delivery proof")
	}
	vendorID := *actor.VendorID

	fileID := strings.TrimSpace(req.FileID)
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" || fileID == "" {
		return nil, shared.NewDomainError("INVALID_PROOF", "Delivery proof image and file ID are required")
	}
	prefix := proofPrefix(actor.UserID)
	if !ownsProofKey(prefix, fileID) {
		return nil, shared.NewDomainError("INVALID_PROOF", "Delivery proof must be uploaded to your delivery-proofs folder")
	}
	if imageURL != s.storage.PublicURL(fileID) {
		return nil, shared.NewDomainError("INVALID_PROOF", "Delivery proof image does not match the uploaded file")
	}
	if err := s.checkUploaded(ctx, fileID); err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var replaced string
	if o.DeliveryProof != nil {
		replaced = o.DeliveryProof.FileID
	}

	now := s.now()
	if err := o.RecordDeliveryProof(vendorID, imageURL, fileID, req.Note, now); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	if err := shared.PublishEvents(ctx, s.publisher, o.PullDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish delivery proof event", zap.String("order_id", o.ID.String()), zap.Error(err))
	}

	if replaced != "" && replaced != fileID && ownsProofKey(prefix, replaced) {
		s.deleteReplaced(ctx, replaced)
	}

	s.logger.Info("Delivery proof uploaded",
		zap.String("order_id", o.ID.String()),
		zap.String("vendor_id", vendorID.String()),
		zap.Int("upload_count", o.DeliveryProof.UploadCount))

	return &DeliveryProofResult{
		Order:         ToVendorOrderView(o, vendorID, now),
		DeliveryProof: ToDeliveryProofView(o.DeliveryProof, now),
	}, nil
}

func proofPrefix(userID uuid.UUID) string {
	return ProofFolder + "/" + userID.String() + "/"
}

// ownsProofKey reports whether key names a file directly under prefix
func ownsProofKey(prefix, key string) bool {
	name, ok := strings.CutPrefix(key, prefix)
	return ok && name != "" && !strings.ContainsAny(name, "/\\") && name != "." && name != ".."
}

func (s *DeliveryProofService) checkUploaded(ctx context.Context, fileID string) error {
	checker, ok := s.storage.(objectChecker)
	if !ok {
		return nil
	}
	exists, err := checker.ObjectExists(ctx, fileID)
	if err != nil {
		s.logger.Warn("Could not verify delivery proof upload", zap.String("file_id", fileID), zap.Error(err))
		return nil
	}
	if !exists {
		return shared.NewDomainError("UPLOAD_NOT_FOUND", "Delivery proof file was not uploaded")
	}
	return nil
}

func (s *DeliveryProofService) deleteReplaced(ctx context.Context, fileID string) {
	deleter, ok := s.storage.(objectDeleter)
	if !ok {
		return
	}
	if err := deleter.DeleteObject(ctx, fileID); err != nil {
		s.logger.Warn("Failed to delete replaced delivery proof", zap.String("file_id", fileID), zap.Error(err))
	}
}
