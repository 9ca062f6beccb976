// Package engine drives the transaction stream: decode, apply, and on
// failure warn and move on. A malformed record or a rejected transaction
// never aborts the run; only an unreadable input source does.
package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"payments-engine/internal/ledger"
	"payments-engine/internal/parser"
)

type Engine struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger: ledger.New(),
		logger: logger,
	}
}

// Ledger exposes the engine's ledger for inspection after a run.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Run consumes the whole input stream, applying transactions in order.
// Decode failures and rejected transactions are logged at warning level
// and skipped. The returned error is non-nil only when the input itself
// cannot be read.
func (e *Engine) Run(in io.Reader) error {
	r := parser.NewReader(in)
	for {
		tx, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var re *parser.RecordError
			if errors.As(err, &re) {
				e.logger.Warn("skipping record", zap.Error(err))
				continue
			}
			return fmt.Errorf("read input: %w", err)
		}
		if err := e.ledger.Apply(tx); err != nil {
			e.logger.Warn("transaction rejected", zap.Error(err))
		}
	}
}

// WriteSnapshot emits the final per-client state as CSV, one row per
// client that ever had an account created, sorted by client id.
func (e *Engine) WriteSnapshot(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range e.ledger.Snapshot() {
		rec := []string{
			fmt.Sprintf("%d", row.Client),
			row.Available.String(),
			row.Held.String(),
			row.Total.String(),
			fmt.Sprintf("%t", row.Locked),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
