package service

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
	"demo-bank/internal/events"
	"demo-bank/internal/repository"
)

func newTestTransferService(t *testing.T) (*TransferService, *repository.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := newSeededStore(t)
	publisher := &recordingPublisher{}
	svc := NewTransferService(store, publisher, newTestLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, publisher
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balances(t *testing.T, store domain.LedgerStore) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	user, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	return user.Accounts[0].Balance, user.Accounts[1].Balance
}

func TestTransferDemoScenario(t *testing.T) {
	svc, store, publisher := newTestTransferService(t)

	result, err := svc.Transfer(context.Background(), &TransferRequest{
		UserID:        1,
		FromAccountID: "acc-001",
		ToAccountID:   "acc-002",
		Amount:        dec("100"),
		Description:   "test",
	})
	require.NoError(t, err)

	require.Len(t, result.Accounts, 2)
	assert.True(t, result.Accounts[0].Balance.Equal(dec("5320.50")), "from %s", result.Accounts[0].Balance)
	assert.True(t, result.Accounts[1].Balance.Equal(dec("12600.00")), "to %s", result.Accounts[1].Balance)
	require.Len(t, result.Transactions, 7)

	credit, debit := result.Transactions[0], result.Transactions[1]
	assert.Equal(t, int64(7), credit.ID)
	assert.Equal(t, int64(6), debit.ID)
	assert.Equal(t, "acc-002", credit.AccountID)
	assert.Equal(t, "acc-001", debit.AccountID)
	assert.True(t, credit.Amount.Add(debit.Amount).IsZero())
	assert.Equal(t, "test", credit.Description)
	assert.Equal(t, credit.Description, debit.Description)
	assert.Equal(t, domain.TransactionTypeTransfer, credit.Type)
	assert.Equal(t, domain.TransactionTypeTransfer, debit.Type)
	assert.Equal(t, "2026-02-01", credit.Date)
	assert.Equal(t, "2026-02-01", debit.Date)

	from, to := balances(t, store)
	assert.True(t, from.Equal(dec("5320.50")))
	assert.True(t, to.Equal(dec("12600.00")))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.TransferEventsStream, publisher.events[0].stream)
	assert.Equal(t, events.TransferCompleted, publisher.events[0].eventType)
	event := publisher.events[0].data.(events.TransferCompletedEvent)
	assert.Equal(t, "100.00", event.Amount)
	assert.Equal(t, int64(6), event.DebitTransactionID)
	assert.Equal(t, int64(7), event.CreditTransactionID)
}

func TestTransferPreservesTotal(t *testing.T) {
	svc, store, _ := newTestTransferService(t)
	fromBefore, toBefore := balances(t, store)

	amounts := []string{"0.01", "15.99", "250", "5000"}
	for _, amount := range amounts {
		_, err := svc.Transfer(context.Background(), &TransferRequest{
			UserID: 1, FromAccountID: "acc-002", ToAccountID: "acc-001", Amount: dec(amount),
		})
		require.NoError(t, err)
	}

	fromAfter, toAfter := balances(t, store)
	assert.True(t, fromBefore.Add(toBefore).Equal(fromAfter.Add(toAfter)))
}

func TestTransferDefaultDescription(t *testing.T) {
	svc, _, _ := newTestTransferService(t)

	result, err := svc.Transfer(context.Background(), &TransferRequest{
		UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("1"), Description: "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultTransferDescription, result.Transactions[0].Description)
	assert.Equal(t, DefaultTransferDescription, result.Transactions[1].Description)
}

func TestTransferRejections(t *testing.T) {
	tests := []struct {
		name string
		req  TransferRequest
		want *errors.AppError
	}{
		{"unknown source", TransferRequest{UserID: 1, FromAccountID: "acc-999", ToAccountID: "acc-002", Amount: dec("1")}, errors.ErrAccountNotFound},
		{"unknown destination", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-999", Amount: dec("1")}, errors.ErrAccountNotFound},
		{"unknown account checked before amount", TransferRequest{UserID: 1, FromAccountID: "acc-999", ToAccountID: "acc-002", Amount: dec("-1")}, errors.ErrAccountNotFound},
		{"unknown user", TransferRequest{UserID: 2, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("1")}, errors.ErrUserNotFound},
		{"same account", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-001", Amount: dec("1")}, errors.ErrSameAccountTransfer},
		{"same account with negative amount", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-001", Amount: dec("-5")}, errors.ErrInvalidAmount},
		{"same account with zero amount", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-001", Amount: decimal.Zero}, errors.ErrInvalidAmount},
		{"same account with sub-cent amount", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-001", Amount: dec("0.001")}, errors.ErrInvalidAmount},
		{"zero amount", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: decimal.Zero}, errors.ErrInvalidAmount},
		{"negative amount", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("-100")}, errors.ErrInvalidAmount},
		{"negative amount beyond balance", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("-999999")}, errors.ErrInvalidAmount},
		{"sub-cent amount", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("0.001")}, errors.ErrInvalidAmount},
		{"insufficient funds", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("999999")}, errors.ErrInsufficientFunds},
		{"one cent over balance", TransferRequest{UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("5420.51")}, errors.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, publisher := newTestTransferService(t)

			_, err := svc.Transfer(context.Background(), &tt.req)
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)

			user, err := store.GetUser(context.Background(), 1)
			require.NoError(t, err)
			assert.True(t, user.Accounts[0].Balance.Equal(dec("5420.50")))
			assert.True(t, user.Accounts[1].Balance.Equal(dec("12500.00")))
			assert.Len(t, user.Transactions, 5)
			assert.Equal(t, int64(6), user.NextTransactionID)
			assert.Empty(t, publisher.events)
		})
	}
}

func TestTransferEntireBalance(t *testing.T) {
	svc, store, _ := newTestTransferService(t)

	_, err := svc.Transfer(context.Background(), &TransferRequest{
		UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("5420.50"),
	})
	require.NoError(t, err)

	from, to := balances(t, store)
	assert.True(t, from.IsZero())
	assert.True(t, to.Equal(dec("17920.50")))
}

func TestTransferIDsAreMonotonic(t *testing.T) {
	svc, _, _ := newTestTransferService(t)

	var last int64 = 5
	for i := 0; i < 3; i++ {
		result, err := svc.Transfer(context.Background(), &TransferRequest{
			UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("1"),
		})
		require.NoError(t, err)
		debit, credit := result.Transactions[1], result.Transactions[0]
		assert.Equal(t, last+1, debit.ID)
		assert.Equal(t, last+2, credit.ID)
		last = credit.ID
	}
}

func TestTransferResultDoesNotAliasStore(t *testing.T) {
	svc, store, _ := newTestTransferService(t)

	result, err := svc.Transfer(context.Background(), &TransferRequest{
		UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("1"),
	})
	require.NoError(t, err)
	result.Accounts[0].Balance = decimal.Zero

	from, _ := balances(t, store)
	assert.True(t, from.Equal(dec("5419.50")))
}

func TestTransferPublishFailureIsNotFatal(t *testing.T) {
	svc, store, publisher := newTestTransferService(t)
	publisher.err = stderrors.New("broker down")

	_, err := svc.Transfer(context.Background(), &TransferRequest{
		UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("10"),
	})
	require.NoError(t, err)

	from, _ := balances(t, store)
	assert.True(t, from.Equal(dec("5410.50")))
}

func TestConcurrentTransfersCannotOverdraw(t *testing.T) {
	svc, store, _ := newTestTransferService(t)

	// Each fits on its own, both together do not.
	var wg sync.WaitGroup
	var succeeded, insufficient atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), &TransferRequest{
				UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("3000"),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case stderrors.Is(err, errors.ErrInsufficientFunds):
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), insufficient.Load())

	from, to := balances(t, store)
	assert.True(t, from.Equal(dec("2420.50")))
	assert.True(t, to.Equal(dec("15500.00")))
}

func TestConcurrentTransfersStress(t *testing.T) {
	svc, store, _ := newTestTransferService(t)
	query := NewQueryService(store, newTestLogger())

	const workers = 100
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(context.Background(), &TransferRequest{
				UserID: 1, FromAccountID: "acc-001", ToAccountID: "acc-002", Amount: dec("100"),
			}); err == nil {
				succeeded.Add(1)
			}
		}()
		// Readers must never see a half-applied transfer.
		wg.Add(1)
		go func() {
			defer wg.Done()
			accounts, err := query.ListAccounts(context.Background(), 1)
			if assert.NoError(t, err) {
				assert.True(t, accounts[0].Balance.Add(accounts[1].Balance).Equal(dec("17920.50")))
			}
		}()
	}
	wg.Wait()

	// 5420.50 covers 54 transfers of 100.
	assert.Equal(t, int32(54), succeeded.Load())

	user, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, user.Accounts[0].Balance.Equal(dec("20.50")))
	assert.Len(t, user.Transactions, 5+2*54)

	seen := make(map[int64]bool)
	for _, txn := range user.Transactions {
		assert.False(t, seen[txn.ID], "duplicate transaction id %d", txn.ID)
		seen[txn.ID] = true
	}
}
