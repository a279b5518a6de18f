package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BankService links a bank account and exposes the resulting balance
type BankService struct {
	userRepo identity.UserRepository
	provider BankProvider
	logger   *zap.Logger
}

// NewBankService creates a new BankService
func NewBankService(userRepo identity.UserRepository, provider BankProvider, logger *zap.Logger) *BankService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankService{userRepo: userRepo, provider: provider, logger: logger}
}

// Connect links the account with the provider and stores only the masked
// record. The provider's available balance becomes the spendable balance.
func (s *BankService) Connect(ctx context.Context, input ConnectBankInput) (*BankBalanceResult, error) {
	if strings.TrimSpace(input.BankName) == "" || strings.TrimSpace(input.AccountHolder) == "" {
		return nil, shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank name and account holder are required")
	}

	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	linked, err := s.provider.Link(ctx, BankLinkRequest{
		UserID:        input.UserID.String(),
		BankName:      input.BankName,
		AccountHolder: input.AccountHolder,
		AccountNumber: input.AccountNumber,
		RoutingNumber: input.RoutingNumber,
	})
	if err != nil {
		if errors.Is(err, ErrBankLinkRejected) {
			s.logger.Warn("Bank link rejected", zap.String("user_id", input.UserID.String()), zap.Error(err))
			return nil, shared.NewDomainError("BANK_LINK_REJECTED", err.Error())
		}
		s.logger.Error("Bank provider link failed", zap.Error(err))
		return nil, err
	}

	account := identity.BankAccount{
		BankName:      strings.TrimSpace(input.BankName),
		AccountHolder: strings.TrimSpace(input.AccountHolder),
		Last4:         linked.Last4,
		ProviderRef:   linked.ProviderRef,
		LinkedAt:      time.Now(),
	}
	if err := user.LinkBankAccount(account, linked.AvailableBalance); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetBalance(ctx, user.ID, user.Balance); err != nil {
		return nil, err
	}

	s.logger.Info("Bank account linked",
		zap.String("user_id", user.ID.String()),
		zap.String("last4", account.Last4))

	available := linked.AvailableBalance
	return &BankBalanceResult{
		Linked:        true,
		Balance:       user.Balance,
		BankAccount:   toBankAccountInfo(user.BankAccount),
		BankAvailable: &available,
	}, nil
}

// Balance returns the caller's spendable balance. The provider-side figure is
// best effort and omitted when the provider cannot be reached.
func (s *BankService) Balance(ctx context.Context, userID uuid.UUID) (*BankBalanceResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &BankBalanceResult{
		Linked:      user.HasLinkedBank(),
		Balance:     user.Balance,
		BankAccount: toBankAccountInfo(user.BankAccount),
	}
	if !user.HasLinkedBank() {
		return result, nil
	}

	available, err := s.provider.Balance(ctx, user.BankAccount.ProviderRef)
	if err != nil {
		s.logger.Warn("Failed to fetch provider balance",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return result, nil
	}
	result.BankAvailable = &available
	return result, nil
}
