package order

import (
	"context"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/vendor"
)

// TransactionScope provides transactional access to the repositories an order
// touches. Stock, balance, vendor earnings and the order row are committed or
// rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to one transaction
type TransactionalRepositories interface {
	Products() catalog.ProductRepository
	Users() identity.UserRepository
	Vendors() vendor.VendorRepository
	Orders() order.OrderRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// This is useful for testing.
type NoOpTransactionScope struct {
	products catalog.ProductRepository
	users    identity.UserRepository
	vendors  vendor.VendorRepository
	orders   order.OrderRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	products catalog.ProductRepository,
	users identity.UserRepository,
	vendors vendor.VendorRepository,
	orders order.OrderRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{products: products, users: users, vendors: vendors, orders: orders}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Products() catalog.ProductRepository { return s.products }
func (s *NoOpTransactionScope) Users() identity.UserRepository      { return s.users }
func (s *NoOpTransactionScope) Vendors() vendor.VendorRepository    { return s.vendors }
func (s *NoOpTransactionScope) Orders() order.OrderRepository       { return s.orders }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
