package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the balance-bearing row paired one-to-one with a User. The
// balance is mutated exclusively through the store's atomic credit/debit
// operations and is never negative after a committed operation.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	AccountNumber int64           `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Firstname     string          `json:"firstname"`
	Lastname      string          `json:"lastname"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OwnerName is the display name captured onto ledger rows at mutation time.
func (a *Account) OwnerName() string {
	return a.Firstname + " " + a.Lastname
}
