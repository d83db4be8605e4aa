/**
 * @description
 * This file contains the core business logic for the wallet-service. The
 * `Service` struct orchestrates every money movement: it validates amounts
 * before any store call, applies the mutation through the repository's atomic
 * operations, appends the immutable audit rows, and publishes an event for
 * each recorded row.
 *
 * Key features:
 * - Deposit, withdrawal, and transfer against accounts keyed by account number.
 * - Audit rows are written only after the balance change is durable; a recorder
 *   failure surfaces as ErrRecordingFailed and never rolls the balance back.
 * - Transfers are recorded double-entry: one debit row for the sender and one
 *   credit row for the recipient, appended atomically.
 *
 * @dependencies
 * - context, errors, fmt, log, strconv, time: Standard Go libraries.
 * - github.com/google/uuid: For transaction identifiers.
 * - github.com/shopspring/decimal: Fixed-point amount validation and arithmetic.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For publishing transaction.recorded events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flowpurse/wallet-service/internal/domain"
	"github.com/flowpurse/wallet-service/internal/store"
	"github.com/flowpurse/wallet-service/pkg/rabbitmq"
)

var (
	// ErrInvalidAmount rejects non-positive amounts before any store mutation.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrRecordingFailed means the balance change committed but the audit row
	// write failed. Funds moved; history may be incomplete.
	ErrRecordingFailed = errors.New("transaction recording failed")
	// ErrRateLimited is returned when a mutation exceeds the per-account window.
	ErrRateLimited = errors.New("too many wallet operations, slow down")
)

// TransactionRecordedEvent is the payload published after an audit row commits.
type TransactionRecordedEvent struct {
	TransactionID uuid.UUID                   `json:"transaction_id"`
	UserID        uuid.UUID                   `json:"user_id"`
	Amount        decimal.Decimal             `json:"amount"`
	Type          domain.TransactionType      `json:"type"`
	Reference     domain.TransactionReference `json:"reference"`
	Timestamp     time.Time                   `json:"timestamp"`
}

// RateLimiter is the fixed-window limiter interface the service consumes.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for wallet operations.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	eventExchange string

	rateLimiter       RateLimiter
	mutationRateLimit int
}

// NewService creates a new wallet service instance. The producer may be nil
// when the broker is not configured; recording then proceeds without events.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		eventExchange: eventExchange,
	}
}

// SetRateLimiter installs the distributed limiter used for mutation endpoints.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.mutationRateLimit = perMinute
}

// validateAmount enforces the InvalidAmount precondition. It runs before any
// store call, so a rejection never has anything to roll back.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// allowMutation consumes one slot from the per-account rate window. Limiter
// outages degrade to allowing the request; the limiter protects throughput,
// it is not a correctness gate.
func (s *Service) allowMutation(ctx context.Context, accountNumber int64) error {
	if s.rateLimiter == nil || s.mutationRateLimit <= 0 {
		return nil
	}
	subject := strconv.FormatInt(accountNumber, 10)
	count, _, err := s.rateLimiter.ConsumeRateLimit(ctx, "wallet:mutation", subject, s.mutationRateLimit, time.Minute)
	if err != nil {
		log.Printf("level=warn component=app msg=\"rate limiter unavailable; allowing request\" account_number=%d err=%v", accountNumber, err)
		return nil
	}
	if count > s.mutationRateLimit {
		return ErrRateLimited
	}
	return nil
}

// Deposit credits amount to the account and records a credit/deposit row.
// Returns the account with its post-commit balance. When the returned error is
// ErrRecordingFailed the account is still returned: the balance change is
// durable even though the audit row is missing.
func (s *Service) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.allowMutation(ctx, accountNumber); err != nil {
		return nil, err
	}

	account, err := s.repo.CreditAccount(ctx, accountNumber, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to fund account: %w", err)
	}

	row := domain.Transaction{
		TransactionID:         uuid.New(),
		UserID:                account.UserID,
		SenderAccountNumber:   account.AccountNumber,
		SenderAccountName:     account.OwnerName(),
		ReceiverAccountNumber: account.AccountNumber,
		ReceiverAccountName:   account.OwnerName(),
		Amount:                amount,
		Type:                  domain.TransactionTypeCredit,
		Reference:             domain.TransactionRefDeposit,
	}
	return account, s.record(ctx, row)
}

// Withdraw debits amount from the account and records a debit/withdrawal row.
func (s *Service) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.allowMutation(ctx, accountNumber); err != nil {
		return nil, err
	}

	account, err := s.repo.DebitAccount(ctx, accountNumber, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw funds: %w", err)
	}

	row := domain.Transaction{
		TransactionID:         uuid.New(),
		UserID:                account.UserID,
		SenderAccountNumber:   account.AccountNumber,
		SenderAccountName:     account.OwnerName(),
		ReceiverAccountNumber: account.AccountNumber,
		ReceiverAccountName:   account.OwnerName(),
		Amount:                amount,
		Type:                  domain.TransactionTypeDebit,
		Reference:             domain.TransactionRefWithdrawal,
	}
	return account, s.record(ctx, row)
}

// Transfer moves amount from the sender's account to the recipient's in one
// atomic store transaction, then records both sides of the movement: a debit
// row against the sender's history and a credit row against the recipient's.
// Returns the sender's account with its post-commit balance.
func (s *Service) Transfer(ctx context.Context, senderNumber, recipientNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.allowMutation(ctx, senderNumber); err != nil {
		return nil, err
	}

	sender, recipient, err := s.repo.TransferFunds(ctx, senderNumber, recipientNumber, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer funds: %w", err)
	}

	debit := domain.Transaction{
		TransactionID:         uuid.New(),
		UserID:                sender.UserID,
		SenderAccountNumber:   sender.AccountNumber,
		SenderAccountName:     sender.OwnerName(),
		ReceiverAccountNumber: recipient.AccountNumber,
		ReceiverAccountName:   recipient.OwnerName(),
		Amount:                amount,
		Type:                  domain.TransactionTypeDebit,
		Reference:             domain.TransactionRefTransfer,
	}
	credit := debit
	credit.TransactionID = uuid.New()
	credit.UserID = recipient.UserID
	credit.Type = domain.TransactionTypeCredit

	return sender, s.record(ctx, debit, credit)
}

// record appends the audit rows and publishes one event per row. It is called
// only after the balance mutation has committed, so a failure here must never
// try to undo the balance change; it is surfaced as ErrRecordingFailed instead.
func (s *Service) record(ctx context.Context, rows ...domain.Transaction) error {
	if err := s.repo.CreateTransactions(ctx, rows); err != nil {
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}

	if s.eventProducer == nil {
		return nil
	}
	for _, row := range rows {
		event := TransactionRecordedEvent{
			TransactionID: row.TransactionID,
			UserID:        row.UserID,
			Amount:        row.Amount,
			Type:          row.Type,
			Reference:     row.Reference,
			Timestamp:     time.Now().UTC(),
		}
		if err := s.eventProducer.Publish(ctx, s.eventExchange, "wallet.transaction.recorded", event); err != nil {
			log.Printf("level=warn component=app msg=\"transaction event publish failed\" transaction_id=%s err=%v", row.TransactionID, err)
		}
	}
	return nil
}

// Register creates the paired user and account rows atomically. The password
// is already hashed by the caller; only the hash crosses this boundary.
func (s *Service) Register(ctx context.Context, user *domain.User) (*domain.User, *domain.Account, error) {
	created, account, err := s.repo.CreateUserWithAccount(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register user: %w", err)
	}
	return created, account, nil
}

// Account resolves an account by its number for balance reads.
func (s *Service) Account(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	return s.repo.FindAccountByNumber(ctx, accountNumber)
}

// UserByEmail resolves a user for login. The password comparison happens at
// the API edge, next to where the hash was minted.
func (s *Service) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.FindUserByEmail(ctx, email)
}

// History returns the user's ledger rows, newest first, with the counterparty
// display fields derived from each row's type.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]domain.TransactionView, error) {
	rows, err := s.repo.FindTransactionsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}

	views := make([]domain.TransactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.ViewOf(row))
	}
	return views, nil
}
