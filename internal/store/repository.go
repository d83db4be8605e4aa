/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the wallet-service needs. The interface decouples the business logic
 * from the PostgreSQL implementation so the app layer can be tested against
 * in-memory stubs.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: User and transaction identifiers.
 * - github.com/shopspring/decimal: Fixed-point money amounts.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flowpurse/wallet-service/internal/domain"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("a user with this email already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStoreUnavailable  = errors.New("ledger store unavailable")
)

// Repository defines the set of methods for interacting with the ledger store.
// Every mutation method runs its read-check-write sequence inside a single
// database transaction; implementations must guarantee that two conflicting
// mutations on the same account row cannot both commit against a stale balance.
type Repository interface {
	// User and registration methods
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// CreateUserWithAccount allocates an account number and inserts the paired
	// user and account rows in one transaction. Both persist or neither does.
	CreateUserWithAccount(ctx context.Context, user *domain.User) (*domain.User, *domain.Account, error)

	// Account methods
	FindAccountByNumber(ctx context.Context, accountNumber int64) (*domain.Account, error)
	// CreditAccount atomically adds amount to the account's balance and returns
	// the account with its post-commit balance.
	CreditAccount(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error)
	// DebitAccount atomically subtracts amount, failing with
	// ErrInsufficientFunds when the balance read inside the transaction scope
	// is smaller than amount.
	DebitAccount(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error)
	// TransferFunds debits the sender and credits the recipient in one
	// transaction. Both legs commit together or neither applies. Returns both
	// accounts with their post-commit balances.
	TransferFunds(ctx context.Context, senderNumber, recipientNumber int64, amount decimal.Decimal) (sender *domain.Account, recipient *domain.Account, err error)

	// Transaction (audit record) methods
	// CreateTransactions appends the given rows in one transaction. Rows are
	// immutable once written; there is no update or delete counterpart.
	CreateTransactions(ctx context.Context, rows []domain.Transaction) error
	FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}
