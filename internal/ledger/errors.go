package ledger

import "errors"

// Sentinel errors for transaction rejections. Every rejection is local to
// the one transaction: the ledger is left untouched and the stream driver
// carries on with the next record.
var (
	ErrAccountNotFound   = errors.New("ledger: account not found")
	ErrAccountLocked     = errors.New("ledger: account locked")
	ErrDuplicateTx       = errors.New("ledger: duplicate transaction id")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrTxNotFound        = errors.New("ledger: transaction not found")
	ErrAlreadyDisputed   = errors.New("ledger: transaction already under dispute")
	ErrNotDisputed       = errors.New("ledger: transaction not under dispute")
	ErrNegativeAmount    = errors.New("ledger: negative amount")
)
