/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. All balance mutations run inside a single pgx transaction with
 * `SELECT ... FOR UPDATE` row locks, so a sufficiency check and the balance
 * write that follows it always observe the same committed state. Two
 * concurrent debits against one account serialize on the row lock; the second
 * re-reads the balance after the first commits and fails cleanly if the funds
 * are gone.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Fixed-point balance arithmetic.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flowpurse/wallet-service/internal/domain"
)

// uniqueViolation is the Postgres error code raised when an insert breaks a
// unique constraint (here: users.email).
const uniqueViolation = "23505"

const accountColumns = "id, user_id, account_number, balance, firstname, lastname, created_at"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tx, nil
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email. Used by login and by the
// duplicate-signup check.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, firstname, lastname, phone_number, gender, age, email, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Firstname, &user.Lastname, &user.PhoneNumber,
		&user.Gender, &user.Age, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUserWithAccount inserts the user row and its paired zero-balance
// account row in one transaction, allocating the account number from the
// sequence table inside the same scope. Nothing persists on any failure.
func (r *PostgresRepository) CreateUserWithAccount(ctx context.Context, user *domain.User) (*domain.User, *domain.Account, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))", user.Email).Scan(&exists)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrUserExists
	}

	accountNumber, err := nextAccountNumber(ctx, tx)
	if err != nil {
		return nil, nil, err
	}

	created := *user
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	userQuery := `
		INSERT INTO users (id, firstname, lastname, phone_number, gender, age, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, userQuery,
		created.ID, created.Firstname, created.Lastname, created.PhoneNumber,
		created.Gender, created.Age, created.Email, created.PasswordHash,
	).Scan(&created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, nil, ErrUserExists
		}
		return nil, nil, err
	}

	account := domain.Account{
		ID:            uuid.New(),
		UserID:        created.ID,
		AccountNumber: accountNumber,
		Balance:       decimal.Zero,
		Firstname:     created.Firstname,
		Lastname:      created.Lastname,
	}
	accountQuery := `
		INSERT INTO accounts (id, user_id, account_number, balance, firstname, lastname)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, accountQuery,
		account.ID, account.UserID, account.AccountNumber, account.Balance,
		account.Firstname, account.Lastname,
	).Scan(&account.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	if err := commit(ctx, tx); err != nil {
		return nil, nil, err
	}
	return &created, &account, nil
}

// nextAccountNumber advances the allocator sequence inside the caller's
// transaction. The row lock taken by UPDATE makes the numbers unique and
// monotonically increasing across concurrent signups.
func nextAccountNumber(ctx context.Context, tx pgx.Tx) (int64, error) {
	var number int64
	query := `
		UPDATE account_number_sequence
		SET last_used_number = last_used_number + 1
		RETURNING last_used_number
	`
	if err := tx.QueryRow(ctx, query).Scan(&number); err != nil {
		return 0, fmt.Errorf("failed to allocate account number: %w", err)
	}
	return number, nil
}

// FindAccountByNumber retrieves an account by its unique account number.
func (r *PostgresRepository) FindAccountByNumber(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	var account domain.Account
	query := "SELECT " + accountColumns + " FROM accounts WHERE account_number = $1"
	err := r.db.QueryRow(ctx, query, accountNumber).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.Balance,
		&account.Firstname, &account.Lastname, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// lockAccount reads an account row FOR UPDATE inside tx. The lock holds until
// the transaction commits or rolls back.
func lockAccount(ctx context.Context, tx pgx.Tx, accountNumber int64) (*domain.Account, error) {
	var account domain.Account
	query := "SELECT " + accountColumns + " FROM accounts WHERE account_number = $1 FOR UPDATE"
	err := tx.QueryRow(ctx, query, accountNumber).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.Balance,
		&account.Firstname, &account.Lastname, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func writeBalance(ctx context.Context, tx pgx.Tx, accountNumber int64, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE account_number = $2", balance, accountNumber)
	return err
}

// CreditAccount atomically adds amount to the account's balance.
func (r *PostgresRepository) CreditAccount(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, accountNumber)
	if err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(amount)
	if err := writeBalance(ctx, tx, accountNumber, account.Balance); err != nil {
		return nil, err
	}

	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return account, nil
}

// DebitAccount atomically subtracts amount from the account's balance. The
// sufficiency check runs against the balance read under the row lock, not a
// value cached before the transaction began, so concurrent debits cannot both
// spend the same funds.
func (r *PostgresRepository) DebitAccount(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(amount)
	if err := writeBalance(ctx, tx, accountNumber, account.Balance); err != nil {
		return nil, err
	}

	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return account, nil
}

// TransferFunds debits the sender and credits the recipient in one
// transaction. Both rows are locked FOR UPDATE in ascending account-number
// order so that two opposite-direction transfers between the same accounts
// cannot deadlock.
func (r *PostgresRepository) TransferFunds(ctx context.Context, senderNumber, recipientNumber int64, amount decimal.Decimal) (*domain.Account, *domain.Account, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	first, second := senderNumber, recipientNumber
	if second < first {
		first, second = second, first
	}
	locked := make(map[int64]*domain.Account, 2)
	for _, number := range []int64{first, second} {
		account, err := lockAccount(ctx, tx, number)
		if err != nil {
			return nil, nil, err
		}
		locked[number] = account
	}
	sender, recipient := locked[senderNumber], locked[recipientNumber]

	if sender.Balance.LessThan(amount) {
		return nil, nil, ErrInsufficientFunds
	}

	sender.Balance = sender.Balance.Sub(amount)
	recipient.Balance = recipient.Balance.Add(amount)
	if err := writeBalance(ctx, tx, senderNumber, sender.Balance); err != nil {
		return nil, nil, err
	}
	if err := writeBalance(ctx, tx, recipientNumber, recipient.Balance); err != nil {
		return nil, nil, err
	}

	if err := commit(ctx, tx); err != nil {
		return nil, nil, err
	}
	return sender, recipient, nil
}

// CreateTransactions appends the given audit rows in one transaction. There is
// deliberately no update or delete counterpart: the transactions table is
// append-only.
func (r *PostgresRepository) CreateTransactions(ctx context.Context, rows []domain.Transaction) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transactions (
			transaction_id,
			user_id,
			sender_account_number,
			sender_account_name,
			receiver_account_number,
			receiver_account_name,
			amount,
			type,
			reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, row := range rows {
		_, err := tx.Exec(ctx, query,
			row.TransactionID,
			row.UserID,
			row.SenderAccountNumber,
			row.SenderAccountName,
			row.ReceiverAccountNumber,
			row.ReceiverAccountName,
			row.Amount,
			row.Type,
			row.Reference,
		)
		if err != nil {
			return err
		}
	}

	return commit(ctx, tx)
}

// FindTransactionsByUserID retrieves a user's ledger rows, newest first. The
// secondary sort on transaction_id keeps the order stable for rows created in
// the same instant.
func (r *PostgresRepository) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, sender_account_number, sender_account_name,
		       receiver_account_number, receiver_account_name, amount, type, reference, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, transaction_id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		err := rows.Scan(
			&tx.TransactionID, &tx.UserID, &tx.SenderAccountNumber, &tx.SenderAccountName,
			&tx.ReceiverAccountNumber, &tx.ReceiverAccountName, &tx.Amount, &tx.Type,
			&tx.Reference, &tx.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}
