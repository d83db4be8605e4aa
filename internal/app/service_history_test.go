package app

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flowpurse/wallet-service/internal/domain"
)

func TestHistoryDerivesCounterparty(t *testing.T) {
	userID := uuid.New()
	repo := newWalletRepoStub()
	repo.history = []domain.Transaction{
		{
			TransactionID:         uuid.New(),
			UserID:                userID,
			SenderAccountNumber:   2000000002,
			SenderAccountName:     "Bayo Eze",
			ReceiverAccountNumber: 2000000001,
			ReceiverAccountName:   "Ada Obi",
			Amount:                decimal.RequireFromString("1000"),
			Type:                  domain.TransactionTypeCredit,
			Reference:             domain.TransactionRefTransfer,
		},
		{
			TransactionID:         uuid.New(),
			UserID:                userID,
			SenderAccountNumber:   2000000001,
			SenderAccountName:     "Ada Obi",
			ReceiverAccountNumber: 2000000003,
			ReceiverAccountName:   "Chika Udo",
			Amount:                decimal.RequireFromString("250"),
			Type:                  domain.TransactionTypeDebit,
			Reference:             domain.TransactionRefTransfer,
		},
	}
	service := NewService(repo, nil, "wallet.events")

	views, err := service.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(views))
	}

	// Credits show where the money came from; debits show where it went.
	if views[0].CounterpartyAccountNumber != 2000000002 || views[0].CounterpartyAccountName != "Bayo Eze" {
		t.Errorf("credit counterparty mismatch: got %d %q", views[0].CounterpartyAccountNumber, views[0].CounterpartyAccountName)
	}
	if views[1].CounterpartyAccountNumber != 2000000003 || views[1].CounterpartyAccountName != "Chika Udo" {
		t.Errorf("debit counterparty mismatch: got %d %q", views[1].CounterpartyAccountNumber, views[1].CounterpartyAccountName)
	}
}

func TestHistoryReadIsIdempotent(t *testing.T) {
	userID := uuid.New()
	repo := newWalletRepoStub()
	repo.history = []domain.Transaction{
		{
			TransactionID:         uuid.New(),
			UserID:                userID,
			SenderAccountNumber:   2000000001,
			SenderAccountName:     "Ada Obi",
			ReceiverAccountNumber: 2000000001,
			ReceiverAccountName:   "Ada Obi",
			Amount:                decimal.RequireFromString("40"),
			Type:                  domain.TransactionTypeCredit,
			Reference:             domain.TransactionRefDeposit,
		},
	}
	service := NewService(repo, nil, "wallet.events")

	first, err := service.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("first read returned error: %v", err)
	}
	second, err := service.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("second read returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated history reads must return identical results")
	}
}

func TestHistoryForUnknownUserIsEmpty(t *testing.T) {
	repo := newWalletRepoStub()
	service := NewService(repo, nil, "wallet.events")

	views, err := service.History(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected empty history, got %d rows", len(views))
	}
}
