// Package banking links customer bank accounts for balance-funded checkout.
package banking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync"

	identityapp "github.com/artisanmarket/backend/internal/application/identity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	accountNumberPattern = regexp.MustCompile(`^\d{4,17}$`)
	routingNumberPattern = regexp.MustCompile(`^\d{9}$`)
)

// SandboxProvider emulates an aggregator sandbox: any well-formed account links
// and reports a fixed starting balance. Account numbers ending in 0000 are
// rejected so the failure path can be exercised.
type SandboxProvider struct {
	mu       sync.RWMutex
	balance  decimal.Decimal
	accounts map[string]decimal.Decimal
	logger   *zap.Logger
}

// NewSandboxProvider creates a provider that funds every linked account with balance
func NewSandboxProvider(balance decimal.Decimal, logger *zap.Logger) *SandboxProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SandboxProvider{
		balance:  balance,
		accounts: make(map[string]decimal.Decimal),
		logger:   logger.Named("banking.sandbox"),
	}
}

// Link validates the account details and returns a provider reference
func (p *SandboxProvider) Link(_ context.Context, req identityapp.BankLinkRequest) (*identityapp.LinkedBankAccount, error) {
	if !accountNumberPattern.MatchString(req.AccountNumber) {
		return nil, fmt.Errorf("%w: account number must be 4-17 digits", identityapp.ErrBankLinkRejected)
	}
	if !routingNumberPattern.MatchString(req.RoutingNumber) {
		return nil, fmt.Errorf("%w: routing number must be 9 digits", identityapp.ErrBankLinkRejected)
	}
	last4 := req.AccountNumber[len(req.AccountNumber)-4:]
	if last4 == "0000" {
		return nil, fmt.Errorf("%w: account could not be verified", identityapp.ErrBankLinkRejected)
	}

	sum := sha256.Sum256([]byte(req.UserID + ":" + req.RoutingNumber + ":" + req.AccountNumber))
	ref := "acct_sandbox_" + hex.EncodeToString(sum[:10])

	p.mu.Lock()
	if _, ok := p.accounts[ref]; !ok {
		p.accounts[ref] = p.balance
	}
	balance := p.accounts[ref]
	p.mu.Unlock()

	p.logger.Info("Linked sandbox bank account",
		zap.String("user_id", req.UserID),
		zap.String("provider_ref", ref),
		zap.String("last4", last4))

	return &identityapp.LinkedBankAccount{
		ProviderRef:      ref,
		Last4:            last4,
		AvailableBalance: balance,
	}, nil
}

// Balance returns the available balance for a linked account
func (p *SandboxProvider) Balance(_ context.Context, providerRef string) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	balance, ok := p.accounts[providerRef]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown bank account %s", providerRef)
	}
	return balance, nil
}

var _ identityapp.BankProvider = (*SandboxProvider)(nil)
