package domain

import (
	"context"
)

// User owns a set of accounts and the transaction history across them.
// Transactions are kept most-recent-first.
type User struct {
	ID                int64
	Email             string
	Name              string
	PasswordHash      string
	Accounts          []Account
	Transactions      []Transaction
	NextTransactionID int64
}

// Account returns a pointer into u.Accounts so callers holding a working copy
// can mutate the balance in place.
func (u *User) Account(id string) (*Account, bool) {
	for i := range u.Accounts {
		if u.Accounts[i].ID == id {
			return &u.Accounts[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	cp := *u
	cp.Accounts = append([]Account(nil), u.Accounts...)
	cp.Transactions = append([]Transaction(nil), u.Transactions...)
	return &cp
}

// LedgerStore is the only stateful component. Reads return snapshots; every
// mutation goes through WithLock.
type LedgerStore interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	PutUser(ctx context.Context, user *User) error
	// WithLock runs fn with exclusive access to the user. fn receives a working
	// copy which is committed only when fn returns nil.
	WithLock(ctx context.Context, id int64, fn func(user *User) error) error
}
