package engine_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments-engine/internal/engine"
	"payments-engine/internal/ledger"
	"payments-engine/internal/models"
)

// run feeds a CSV string through the engine and returns the final rows.
func run(t *testing.T, input string) []ledger.Row {
	t.Helper()
	e := engine.New(nil)
	require.NoError(t, e.Run(strings.NewReader(input)))
	return e.Ledger().Snapshot()
}

type wantRow struct {
	client    models.ClientID
	available string
	held      string
	locked    bool
}

func requireRows(t *testing.T, rows []ledger.Row, want []wantRow) {
	t.Helper()
	require.Len(t, rows, len(want))
	for i, w := range want {
		got := rows[i]
		assert.Equal(t, w.client, got.Client)
		assert.True(t, got.Available.Equal(decimal.RequireFromString(w.available)),
			"client %d available got=%s want=%s", w.client, got.Available, w.available)
		assert.True(t, got.Held.Equal(decimal.RequireFromString(w.held)),
			"client %d held got=%s want=%s", w.client, got.Held, w.held)
		assert.True(t, got.Total.Equal(got.Available.Add(got.Held)),
			"client %d total invariant", w.client)
		assert.Equal(t, w.locked, got.Locked, "client %d locked", w.client)
	}
}

func TestRun_SpecExample(t *testing.T) {
	rows := run(t, `type,client,tx,amount
deposit,1,1,1.0
deposit,2,2,2.0
deposit,1,3,2.0
withdrawal,1,4,1.5
withdrawal,2,5,3.0
`)
	requireRows(t, rows, []wantRow{
		{1, "1.5", "0", false},
		{2, "2.0", "0", false},
	})
}

func TestRun_FullDisputeLifecycles(t *testing.T) {
	rows := run(t, `type,client,tx,amount
deposit,1,1,100.0
deposit,1,2,50.0
dispute,1,1,
resolve,1,1,
dispute,1,2,
chargeback,1,2,
`)
	// tx 1 round-trips via resolve, tx 2 is charged back: 100 remains, locked.
	requireRows(t, rows, []wantRow{
		{1, "100.0", "0", true},
	})
}

func TestRun_MalformedRowsSkipped(t *testing.T) {
	rows := run(t, `type,client,tx,amount
deposit,1,1,100.0
deposit,oops,2,50.0
bogus,1,3,10.0
deposit,1,4,
withdrawal,1,5,25.0
`)
	requireRows(t, rows, []wantRow{
		{1, "75.0", "0", false},
	})
}

func TestRun_RejectedTransactionsSkipped(t *testing.T) {
	rows := run(t, `type,client,tx,amount
deposit,1,1,50.0
withdrawal,1,2,100.0
dispute,1,99,
resolve,1,1,
chargeback,1,1,
deposit,1,1,25.0
withdrawal,7,3,10.0
`)
	requireRows(t, rows, []wantRow{
		{1, "50.0", "0", false},
	})
}

func TestRun_WhitespaceTolerated(t *testing.T) {
	rows := run(t, "type, client, tx, amount\n"+
		"deposit, 1, 1, 100.0\n"+
		"  withdrawal ,1 , 2 ,  25.0\n")
	requireRows(t, rows, []wantRow{
		{1, "75.0", "0", false},
	})
}

func TestRun_EmptyInput(t *testing.T) {
	require.Empty(t, run(t, ""))
	require.Empty(t, run(t, "type,client,tx,amount\n"))
}

func TestRun_MissingHeaderColumn(t *testing.T) {
	// Decodable as a stream but useless as records: the run still finishes
	// cleanly with empty output.
	require.Empty(t, run(t, "type,client,tx\ndeposit,1,1\n"))
}

func TestRun_LockedAccountIgnoresTail(t *testing.T) {
	rows := run(t, `type,client,tx,amount
deposit,1,1,100.0
dispute,1,1,
chargeback,1,1,
deposit,1,2,500.0
withdrawal,1,3,10.0
deposit,2,4,7.0
`)
	requireRows(t, rows, []wantRow{
		{1, "0", "0", true},
		{2, "7.0", "0", false},
	})
}

func TestRun_NegativeAvailableAfterDispute(t *testing.T) {
	rows := run(t, `type,client,tx,amount
deposit,1,1,100.0
withdrawal,1,2,80.0
dispute,1,1,
`)
	requireRows(t, rows, []wantRow{
		{1, "-80.0", "100.0", false},
	})
}

func TestRun_Fixture(t *testing.T) {
	path := filepath.Join("..", "..", "testdata", "transactions.csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	e := engine.New(nil)
	require.NoError(t, e.Run(f))

	requireRows(t, e.Ledger().Snapshot(), []wantRow{
		{1, "1.5", "0", false},
		{2, "2.0", "0", false},
		{3, "20.0", "0", true},
		{4, "-10.0", "25.0", false},
	})
}

func TestWriteSnapshot_CSVShape(t *testing.T) {
	e := engine.New(nil)
	require.NoError(t, e.Run(strings.NewReader(`type,client,tx,amount
deposit,2,1,2.0
deposit,1,2,1.5
dispute,2,1,
chargeback,2,1,
`)))

	var buf bytes.Buffer
	require.NoError(t, e.WriteSnapshot(&buf))

	want := "client,available,held,total,locked\n" +
		"1,1.5,0,1.5,false\n" +
		"2,0,0,0,true\n"
	assert.Equal(t, want, buf.String())
}
