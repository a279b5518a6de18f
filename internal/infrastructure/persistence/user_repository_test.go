package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUserRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "ada@example.com", decimal.Zero)

	found, err := repo.FindByEmail(ctx, "  ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, identity.RoleCustomer, found.Role)
	assert.Nil(t, found.BankAccount)

	exists, err := repo.ExistsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	t.Run("duplicate email", func(t *testing.T) {
		dup, err := identity.NewUser("Other", "ada@example.com", "password123", identity.RoleCustomer)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormUserRepository_UpdateKeepsMaskedBank(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "grace@example.com", decimal.Zero)
	require.NoError(t, u.LinkBankAccount(identity.BankAccount{
		BankName:      "First Artisan Bank",
		AccountHolder: "Grace Hopper",
		Last4:         "6789",
		ProviderRef:   "acct_sandbox_1",
		LinkedAt:      time.Now().UTC().Truncate(time.Second),
	}, decimal.NewFromInt(5000)))
	u.PromoteToVendor()
	require.NoError(t, repo.Update(ctx, u))

	found, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, found.BankAccount)
	assert.Equal(t, "6789", found.BankAccount.Last4)
	assert.Equal(t, identity.RoleVendor, found.Role)
	assert.True(t, found.Balance.IsZero(), "Update must not overwrite the balance")

	require.NoError(t, repo.SetBalance(ctx, u.ID, u.Balance))
	found, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(found.Balance))
}

func TestGormUserRepository_Balance(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "linus@example.com", decimal.NewFromInt(100))

	ok, err := repo.DebitBalance(ctx, u.ID, decimal.RequireFromString("100.01"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DebitBalance(ctx, u.ID, decimal.RequireFromString("60.50"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.CreditBalance(ctx, u.ID, decimal.RequireFromString("10.25")))

	found, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "49.75", found.Balance.StringFixed(2))

	_, err = repo.DebitBalance(ctx, u.ID, decimal.Zero)
	assert.Error(t, err)
	assert.ErrorIs(t, repo.CreditBalance(ctx, uuid.New(), decimal.NewFromInt(1)), shared.ErrNotFound)
}
