// Package ledger holds the per-client account state and the rules for how
// each transaction type mutates it. Transitions are atomic: every validity
// check happens before any field changes, so a rejected transaction leaves
// the ledger exactly as it was.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"payments-engine/internal/models"
)

// StoredDeposit keeps a deposit's original amount for the lifetime of the
// account, so later disputes can reference it. UnderDispute is true iff the
// amount is currently counted in held rather than available.
type StoredDeposit struct {
	Amount       decimal.Decimal
	UnderDispute bool
}

// Account is created lazily by the first valid deposit for a client and
// lives until the end of the run. Once Locked it accepts no further
// mutating transactions.
type Account struct {
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
	deposits  map[models.TxID]*StoredDeposit
}

func newAccount() *Account {
	return &Account{
		Available: decimal.Zero,
		Held:      decimal.Zero,
		deposits:  make(map[models.TxID]*StoredDeposit),
	}
}

// Total is always derived, never stored.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Deposit returns the stored deposit for tx, if any.
func (a *Account) Deposit(tx models.TxID) (StoredDeposit, bool) {
	d, ok := a.deposits[tx]
	if !ok {
		return StoredDeposit{}, false
	}
	return *d, true
}

// Ledger maps clients to their account state. It is exclusively owned by
// the stream driver; transactions are applied one at a time in input order.
type Ledger struct {
	accounts map[models.ClientID]*Account
}

func New() *Ledger {
	return &Ledger{accounts: make(map[models.ClientID]*Account)}
}

// Account returns a snapshot of the client's account. The copy does not
// share the deposit map, so callers cannot mutate ledger state through it.
func (l *Ledger) Account(client models.ClientID) (Account, bool) {
	a, ok := l.accounts[client]
	if !ok {
		return Account{}, false
	}
	cp := *a
	cp.deposits = make(map[models.TxID]*StoredDeposit, len(a.deposits))
	for tx, d := range a.deposits {
		dc := *d
		cp.deposits[tx] = &dc
	}
	return cp, true
}

func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Apply runs one transaction against the ledger. On error nothing changed.
func (l *Ledger) Apply(t models.Transaction) error {
	switch t.Type {
	case models.TypeDeposit:
		return l.applyDeposit(t.Client, t.Tx, t.Amount)
	case models.TypeWithdrawal:
		return l.applyWithdrawal(t.Client, t.Amount)
	case models.TypeDispute:
		return l.applyDispute(t.Client, t.Tx)
	case models.TypeResolve:
		return l.applyResolve(t.Client, t.Tx)
	case models.TypeChargeback:
		return l.applyChargeback(t.Client, t.Tx)
	default:
		return fmt.Errorf("unknown transaction type: %s", t.Type)
	}
}

func (l *Ledger) applyDeposit(client models.ClientID, tx models.TxID, amount decimal.Decimal) error {
	// The decoder already rejects negative amounts; re-check rather than
	// trust upstream state.
	if amount.IsNegative() {
		return fmt.Errorf("deposit for client %d: %w", client, ErrNegativeAmount)
	}
	account, ok := l.accounts[client]
	if ok {
		if account.Locked {
			return fmt.Errorf("deposit for client %d: %w", client, ErrAccountLocked)
		}
		if _, exists := account.deposits[tx]; exists {
			return fmt.Errorf("deposit tx %d for client %d: %w", tx, client, ErrDuplicateTx)
		}
	} else {
		account = newAccount()
		l.accounts[client] = account
	}

	account.Available = account.Available.Add(amount)
	account.deposits[tx] = &StoredDeposit{Amount: amount}
	return nil
}

func (l *Ledger) applyWithdrawal(client models.ClientID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("withdrawal for client %d: %w", client, ErrNegativeAmount)
	}
	account, ok := l.accounts[client]
	if !ok {
		return fmt.Errorf("withdrawal for client %d: %w", client, ErrAccountNotFound)
	}
	if account.Locked {
		return fmt.Errorf("withdrawal for client %d: %w", client, ErrAccountLocked)
	}
	if account.Available.LessThan(amount) {
		return fmt.Errorf("withdrawal for client %d (available %s, requested %s): %w",
			client, account.Available, amount, ErrInsufficientFunds)
	}

	account.Available = account.Available.Sub(amount)
	return nil
}

func (l *Ledger) applyDispute(client models.ClientID, tx models.TxID) error {
	account, deposit, err := l.lookup("dispute", client, tx)
	if err != nil {
		return err
	}
	if deposit.UnderDispute {
		return fmt.Errorf("dispute tx %d for client %d: %w", tx, client, ErrAlreadyDisputed)
	}

	// Available may go negative if the disputed funds were already partly
	// withdrawn; the model accepts that, only withdrawals are floored.
	deposit.UnderDispute = true
	account.Held = account.Held.Add(deposit.Amount)
	account.Available = account.Available.Sub(deposit.Amount)
	return nil
}

func (l *Ledger) applyResolve(client models.ClientID, tx models.TxID) error {
	account, deposit, err := l.lookup("resolve", client, tx)
	if err != nil {
		return err
	}
	if !deposit.UnderDispute {
		return fmt.Errorf("resolve tx %d for client %d: %w", tx, client, ErrNotDisputed)
	}

	deposit.UnderDispute = false
	account.Held = account.Held.Sub(deposit.Amount)
	account.Available = account.Available.Add(deposit.Amount)
	return nil
}

func (l *Ledger) applyChargeback(client models.ClientID, tx models.TxID) error {
	account, deposit, err := l.lookup("chargeback", client, tx)
	if err != nil {
		return err
	}
	if !deposit.UnderDispute {
		return fmt.Errorf("chargeback tx %d for client %d: %w", tx, client, ErrNotDisputed)
	}

	// The held amount is gone for good: it leaves held without returning
	// to available, and the account is frozen from here on.
	deposit.UnderDispute = false
	account.Held = account.Held.Sub(deposit.Amount)
	account.Locked = true
	return nil
}

// lookup runs the checks shared by dispute, resolve and chargeback:
// the account must exist and be unlocked, and tx must reference a stored
// deposit of that account.
func (l *Ledger) lookup(op string, client models.ClientID, tx models.TxID) (*Account, *StoredDeposit, error) {
	account, ok := l.accounts[client]
	if !ok {
		return nil, nil, fmt.Errorf("%s for client %d: %w", op, client, ErrAccountNotFound)
	}
	if account.Locked {
		return nil, nil, fmt.Errorf("%s for client %d: %w", op, client, ErrAccountLocked)
	}
	deposit, ok := account.deposits[tx]
	if !ok {
		return nil, nil, fmt.Errorf("%s tx %d for client %d: %w", op, tx, client, ErrTxNotFound)
	}
	return account, deposit, nil
}

// Row is one client's final state as it appears in the output.
type Row struct {
	Client    models.ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Snapshot flattens the ledger into output rows, sorted by client id for
// deterministic output. Every client that ever received a successful
// deposit appears exactly once.
func (l *Ledger) Snapshot() []Row {
	rows := make([]Row, 0, len(l.accounts))
	for client, account := range l.accounts {
		rows = append(rows, Row{
			Client:    client,
			Available: account.Available,
			Held:      account.Held,
			Total:     account.Total(),
			Locked:    account.Locked,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Client < rows[j].Client })
	return rows
}
