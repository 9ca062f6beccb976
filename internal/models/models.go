package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ClientID identifies an account. The input format allows 16-bit ids.
type ClientID uint16

// TxID identifies a deposit transaction. Globally unique across the stream,
// not necessarily ordered. The input format allows 32-bit ids.
type TxID uint32

type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeDispute    TransactionType = "dispute"
	TypeResolve    TransactionType = "resolve"
	TypeChargeback TransactionType = "chargeback"
)

// ParseTransactionType normalizes a raw type field (case-insensitive,
// surrounding whitespace trimmed) into a known TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	typ := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	switch typ {
	case TypeDeposit, TypeWithdrawal, TypeDispute, TypeResolve, TypeChargeback:
		return typ, nil
	default:
		return "", fmt.Errorf("invalid transaction type: %q", s)
	}
}

// HasAmount reports whether records of this type must carry an amount.
// Dispute, resolve and chargeback use the referenced deposit's amount;
// an amount present on the record itself is ignored.
func (t TransactionType) HasAmount() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// Transaction is a validated command applied to the ledger. Amount is set
// only for deposits and withdrawals. Tx is the id under which a deposit is
// stored and the referenced deposit for dispute/resolve/chargeback;
// withdrawals carry a tx id on the wire but it is never referenced later.
type Transaction struct {
	Type   TransactionType
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}
