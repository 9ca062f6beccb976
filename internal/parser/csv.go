package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"payments-engine/internal/models"
)

// Reader streams transactions from CSV input with headers:
// type,client,tx,amount
// type: deposit|withdrawal|dispute|resolve|chargeback (case-insensitive)
// client: unsigned 16-bit, tx: unsigned 32-bit
// amount: decimal string, required for deposit/withdrawal, ignored otherwise
// All fields tolerate surrounding whitespace.
type Reader struct {
	csv  *csv.Reader
	col  map[string]int
	done bool
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Row width is validated per record against the header; trailing empty
	// amount fields on dispute/resolve/chargeback rows are common.
	cr.FieldsPerRecord = -1
	return &Reader{csv: cr}
}

// Next returns the next well-typed transaction. It returns io.EOF at end of
// stream. A malformed record yields a *RecordError; the caller may skip it
// and continue. Any other error means the input itself is unreadable.
func (r *Reader) Next() (models.Transaction, error) {
	if r.done {
		return models.Transaction{}, io.EOF
	}
	if r.col == nil {
		if err := r.readHeader(); err != nil {
			return models.Transaction{}, err
		}
	}
	rec, err := r.csv.Read()
	if err == io.EOF {
		return models.Transaction{}, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return models.Transaction{}, &RecordError{Line: pe.Line, Err: err}
		}
		return models.Transaction{}, fmt.Errorf("read row: %w", err)
	}

	line, _ := r.csv.FieldPos(0)
	tx, err := r.parseRecord(rec)
	if err != nil {
		return models.Transaction{}, &RecordError{Line: line, Err: err}
	}
	return tx, nil
}

func (r *Reader) readHeader() error {
	headers, err := r.csv.Read()
	if err == io.EOF {
		// Empty input: no header, no records.
		return io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			r.done = true
			return &RecordError{Line: pe.Line, Err: err}
		}
		return fmt.Errorf("read header: %w", err)
	}
	col := toIndex(headers)
	required := []string{"type", "client", "tx", "amount"}
	for _, k := range required {
		if _, ok := col[k]; !ok {
			// A bad header makes every record undecodable, but the input
			// is still readable; report it once and end the stream so the
			// run finishes with empty output.
			r.done = true
			return &RecordError{Line: 1, Err: fmt.Errorf("missing column: %s", k)}
		}
	}
	r.col = col
	return nil
}

func (r *Reader) parseRecord(rec []string) (models.Transaction, error) {
	typ, err := models.ParseTransactionType(r.field(rec, "type"))
	if err != nil {
		return models.Transaction{}, err
	}
	client, err := parseClientID(r.field(rec, "client"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("client: %w", err)
	}
	txID, err := parseTxID(r.field(rec, "tx"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("tx: %w", err)
	}

	tx := models.Transaction{Type: typ, Client: client, Tx: txID}
	if typ.HasAmount() {
		amount, err := parseAmount(r.field(rec, "amount"))
		if err != nil {
			return models.Transaction{}, fmt.Errorf("amount: %w", err)
		}
		tx.Amount = amount
	}
	return tx, nil
}

// field returns the named column for this record, or "" when the row is
// shorter than the header (trailing empty fields omitted).
func (r *Reader) field(rec []string, name string) string {
	i := r.col[name]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseClientID(s string) (models.ClientID, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return models.ClientID(v), nil
}

func parseTxID(s string) (models.TxID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return models.TxID(v), nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, errors.New("missing amount")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, errors.New("negative amount not allowed")
	}
	return amount, nil
}

func toIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// RecordError marks a single malformed record. The surrounding stream is
// still readable; callers log and move on to the next record.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
