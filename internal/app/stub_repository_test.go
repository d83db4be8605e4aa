package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flowpurse/wallet-service/internal/domain"
	"github.com/flowpurse/wallet-service/internal/store"
)

// walletRepoStub is an in-memory Repository used by the service tests. The
// mutex makes each mutation a single atomic read-check-write step, mirroring
// the row-lock serialization the Postgres implementation gets FOR UPDATE.
type walletRepoStub struct {
	store.Repository

	mu       sync.Mutex
	accounts map[int64]*domain.Account
	users    map[string]*domain.User
	recorded []domain.Transaction
	history  []domain.Transaction

	recordErr error

	creditCalled bool
	debitCalled  bool
}

func newWalletRepoStub() *walletRepoStub {
	return &walletRepoStub{
		accounts: make(map[int64]*domain.Account),
		users:    make(map[string]*domain.User),
	}
}

func (s *walletRepoStub) addAccount(number int64, balance string, firstname, lastname string) *domain.Account {
	account := &domain.Account{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		AccountNumber: number,
		Balance:       decimal.RequireFromString(balance),
		Firstname:     firstname,
		Lastname:      lastname,
	}
	s.accounts[number] = account
	return account
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func (s *walletRepoStub) CreditAccount(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creditCalled = true
	account, ok := s.accounts[accountNumber]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(amount)
	return copyAccount(account), nil
}

func (s *walletRepoStub) DebitAccount(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debitCalled = true
	account, ok := s.accounts[accountNumber]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if account.Balance.LessThan(amount) {
		return nil, store.ErrInsufficientFunds
	}
	account.Balance = account.Balance.Sub(amount)
	return copyAccount(account), nil
}

func (s *walletRepoStub) TransferFunds(ctx context.Context, senderNumber, recipientNumber int64, amount decimal.Decimal) (*domain.Account, *domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.accounts[senderNumber]
	if !ok {
		return nil, nil, store.ErrAccountNotFound
	}
	recipient, ok := s.accounts[recipientNumber]
	if !ok {
		return nil, nil, store.ErrAccountNotFound
	}
	if sender.Balance.LessThan(amount) {
		return nil, nil, store.ErrInsufficientFunds
	}
	sender.Balance = sender.Balance.Sub(amount)
	recipient.Balance = recipient.Balance.Add(amount)
	return copyAccount(sender), copyAccount(recipient), nil
}

func (s *walletRepoStub) CreateTransactions(ctx context.Context, rows []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, rows...)
	return nil
}

func (s *walletRepoStub) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.history {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *walletRepoStub) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

func (s *walletRepoStub) CreateUserWithAccount(ctx context.Context, user *domain.User) (*domain.User, *domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return nil, nil, store.ErrUserExists
	}
	created := *user
	created.ID = uuid.New()
	s.users[created.Email] = &created

	account := &domain.Account{
		ID:            uuid.New(),
		UserID:        created.ID,
		AccountNumber: int64(2000000001 + len(s.accounts)),
		Balance:       decimal.Zero,
		Firstname:     created.Firstname,
		Lastname:      created.Lastname,
	}
	s.accounts[account.AccountNumber] = account
	return &created, copyAccount(account), nil
}
