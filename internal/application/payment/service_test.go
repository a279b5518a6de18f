package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Intent), args.Error(1)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Intent), args.Error(1)
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestService_CreatePaymentIntent(t *testing.T) {
	userID := uuid.New()

	t.Run("converts to cents with default currency", func(t *testing.T) {
		gw := new(MockGateway)
		svc := NewService(gw, "USD", nil)
		gw.On("CreatePaymentIntent", mock.Anything, CreateIntentInput{
			AmountCents: 5120, Currency: "usd", UserID: userID, OrderReference: "cart-1",
		}).Return(&Intent{ID: "pi_1", ClientSecret: "pi_1_secret", AmountCents: 5120, Currency: "usd"}, nil)

		result, err := svc.CreatePaymentIntent(context.Background(), CreateIntentRequest{
			UserID: userID, Amount: decimal.RequireFromString("51.20"), OrderReference: "cart-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "pi_1", result.PaymentIntentID)
		assert.Equal(t, "pi_1_secret", result.ClientSecret)
		gw.AssertExpectations(t)
	})

	t.Run("rejects out of range amounts", func(t *testing.T) {
		svc := NewService(new(MockGateway), "usd", nil)
		for _, amount := range []string{"0", "-5", "0.001", "1000000"} {
			_, err := svc.CreatePaymentIntent(context.Background(), CreateIntentRequest{
				UserID: userID, Amount: decimal.RequireFromString(amount),
			})
			assert.Equal(t, "INVALID_AMOUNT", domainCode(t, err), amount)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		gw := new(MockGateway)
		svc := NewService(gw, "usd", nil)
		gw.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, errors.New("stripe down"))

		_, err := svc.CreatePaymentIntent(context.Background(), CreateIntentRequest{UserID: userID, Amount: decimal.NewFromInt(10)})
		assert.Equal(t, "PAYMENT_PROVIDER_ERROR", domainCode(t, err))
	})
}

func TestService_VerifyCardPayment(t *testing.T) {
	userID := uuid.New()
	total := decimal.RequireFromString("51.20")

	tests := []struct {
		name     string
		intentID string
		intent   *Intent
		err      error
		wantCode string
	}{
		{"valid", "pi_ok", &Intent{ID: "pi_ok", UserID: userID.String(), AmountCents: 5120, Status: "requires_payment_method"}, nil, ""},
		{"missing id", "", nil, nil, "PAYMENT_INTENT_REQUIRED"},
		{"unknown", "pi_x", nil, ErrIntentNotFound, "INVALID_PAYMENT_INTENT"},
		{"other user", "pi_o", &Intent{ID: "pi_o", UserID: uuid.NewString(), AmountCents: 5120}, nil, "INVALID_PAYMENT_INTENT"},
		{"cancelled", "pi_c", &Intent{ID: "pi_c", UserID: userID.String(), AmountCents: 5120, Status: "canceled"}, nil, "INVALID_PAYMENT_INTENT"},
		{"wrong amount", "pi_a", &Intent{ID: "pi_a", UserID: userID.String(), AmountCents: 5000}, nil, "PAYMENT_AMOUNT_MISMATCH"},
		{"provider error", "pi_e", nil, errors.New("timeout"), "PAYMENT_PROVIDER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			svc := NewService(gw, "usd", nil)
			if tt.intentID != "" {
				if tt.intent != nil {
					gw.On("GetPaymentIntent", mock.Anything, tt.intentID).Return(tt.intent, nil)
				} else {
					gw.On("GetPaymentIntent", mock.Anything, tt.intentID).Return(nil, tt.err)
				}
			}

			err := svc.VerifyCardPayment(context.Background(), tt.intentID, userID, total)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, domainCode(t, err))
		})
	}
}
