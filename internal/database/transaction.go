package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

type txState struct {
	tx          *gorm.DB
	afterCommit []func(ctx context.Context)
}

// TransactionTemplate runs units of work atomically. The transaction travels
// in the context; repositories pick it up through Conn. A nested Execute
// joins the outer transaction.
type TransactionTemplate struct {
	db *gorm.DB
}

func NewTransactionTemplate(db *gorm.DB) *TransactionTemplate {
	return &TransactionTemplate{db: db}
}

// Execute commits when fn returns nil and rolls back otherwise. Hooks
// registered with AfterCommit run only after the outermost commit.
func (t *TransactionTemplate) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	if err != nil {
		return err
	}

	for _, hook := range state.afterCommit {
		hook(ctx)
	}
	return nil
}

// Conn returns the transaction carried by ctx, or db bound to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return db.WithContext(ctx)
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// AfterCommit defers fn until the transaction in ctx commits. fn receives
// the context of the outermost Execute, which carries no transaction.
// Outside a transaction fn runs immediately with ctx. A rolled back
// transaction drops fn.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn(ctx)
}
