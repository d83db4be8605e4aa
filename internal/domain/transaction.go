/**
 * @description
 * This file defines the transaction domain model for the wallet-service. A
 * Transaction is the immutable audit record written for every completed balance
 * mutation. Rows are append-only: the application never updates or deletes them.
 *
 * @notes
 * - Amounts are `decimal.Decimal` (fixed-point) because balances are stored as
 *   NUMERIC(10,2); float arithmetic would drift.
 * - The sender/receiver account names are denormalized snapshots captured at the
 *   moment of the operation. Later changes to the owning user must not alter
 *   historical records, so these are stored fields, never live joins.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger row as money in or money out from the
// perspective of the row's user.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionReference names the operation that produced a ledger row.
type TransactionReference string

const (
	TransactionRefDeposit    TransactionReference = "deposit"
	TransactionRefTransfer   TransactionReference = "transfer"
	TransactionRefWithdrawal TransactionReference = "withdrawal"
)

// Transaction maps directly to the `transactions` table.
type Transaction struct {
	TransactionID         uuid.UUID            `json:"transaction_id"`
	UserID                uuid.UUID            `json:"user_id"`
	SenderAccountNumber   int64                `json:"sender_account_number"`
	SenderAccountName     string               `json:"sender_account_name"`
	ReceiverAccountNumber int64                `json:"receiver_account_number"`
	ReceiverAccountName   string               `json:"receiver_account_name"`
	Amount                decimal.Decimal      `json:"amount"`
	Type                  TransactionType      `json:"type"`
	Reference             TransactionReference `json:"reference"`
	CreatedAt             time.Time            `json:"created_at"`
}

// TransactionView is the user-facing representation of a ledger row. The
// counterparty fields are derived from the row's type on every read: a credit
// shows who the money came from, a debit shows where it went.
type TransactionView struct {
	TransactionID             uuid.UUID            `json:"transaction_id"`
	UserID                    uuid.UUID            `json:"user_id"`
	Amount                    decimal.Decimal      `json:"amount"`
	Type                      TransactionType      `json:"type"`
	Reference                 TransactionReference `json:"reference"`
	CounterpartyAccountNumber int64                `json:"counterparty_account_number"`
	CounterpartyAccountName   string               `json:"counterparty_account_name"`
	CreatedAt                 time.Time            `json:"created_at"`
}

// CounterpartyOf derives the display counterparty for a ledger row. This is a
// presentation rule, not stored data, so history reads always recompute it.
func CounterpartyOf(tx Transaction) (number int64, name string) {
	if tx.Type == TransactionTypeCredit {
		return tx.SenderAccountNumber, tx.SenderAccountName
	}
	return tx.ReceiverAccountNumber, tx.ReceiverAccountName
}

// ViewOf builds the user-facing view of a single ledger row.
func ViewOf(tx Transaction) TransactionView {
	number, name := CounterpartyOf(tx)
	return TransactionView{
		TransactionID:             tx.TransactionID,
		UserID:                    tx.UserID,
		Amount:                    tx.Amount,
		Type:                      tx.Type,
		Reference:                 tx.Reference,
		CounterpartyAccountNumber: number,
		CounterpartyAccountName:   name,
		CreatedAt:                 tx.CreatedAt,
	}
}

// FundRequest is the DTO for deposit and withdrawal API requests.
type FundRequest struct {
	AccountNumber int64           `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransferRequest is the DTO for transfer API requests.
type TransferRequest struct {
	SenderAccountNumber    int64           `json:"sender_account_number"`
	RecipientAccountNumber int64           `json:"recipient_account_number"`
	Amount                 decimal.Decimal `json:"amount"`
}
