package records

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/zkfactor/internal/ledger"
)

func creditsRecord(id, micro string, spent bool) ledger.Record {
	r := ledger.Record{ID: id, Program: ledger.CreditsProgram, RecordName: CreditsRecord, Spent: spent}
	if micro != "" {
		r.Fields = map[string]string{"microcredits": micro + ".private"}
	}
	return r
}

func TestSelectFunding_FirstFit(t *testing.T) {
	recs := []ledger.Record{
		creditsRecord("a", "100u64", false),
		creditsRecord("b", "50u64", false),
		creditsRecord("c", "200u64", false),
	}
	got, err := SelectFunding(recs, 150)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)
}

func TestSelectFunding_PreservesInputOrder(t *testing.T) {
	recs := []ledger.Record{
		creditsRecord("big", "1000u64", false),
		creditsRecord("exact", "150u64", false),
	}
	got, err := SelectFunding(recs, 150)
	require.NoError(t, err)
	assert.Equal(t, "big", got.ID, "first sufficient record wins, not the tightest")
}

func TestSelectFunding_ExactAmount(t *testing.T) {
	got, err := SelectFunding([]ledger.Record{creditsRecord("a", "150u64", false)}, 150)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestSelectFunding_Insufficient(t *testing.T) {
	_, err := SelectFunding([]ledger.Record{creditsRecord("a", "10u64", false)}, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	var ife *InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, uint64(50), ife.Required)
	assert.Equal(t, uint64(10), ife.Largest)
	assert.Equal(t, 1, ife.Candidates)
}

func TestSelectFunding_Empty(t *testing.T) {
	_, err := SelectFunding(nil, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSelectFunding_SkipsSpentAndMalformed(t *testing.T) {
	recs := []ledger.Record{
		creditsRecord("spent", "500u64", true),
		creditsRecord("missing", "", false),
		creditsRecord("garbage", "lots", false),
		creditsRecord("wrongwidth", "500u32", false),
		{ID: "invoice", RecordName: InvoiceRecord, Fields: map[string]string{"microcredits": "500u64"}},
		creditsRecord("ok", "300u64", false),
	}
	got, err := SelectFunding(recs, 300)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.ID)
}

func TestSelectFunding_FromPlaintext(t *testing.T) {
	rec := ledger.Record{
		ID:         "p",
		RecordName: CreditsRecord,
		Plaintext:  "{\n  owner: aleo1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq3ljyzc.private,\n  microcredits: 5000000u64.private,\n  _nonce: 1group.public\n}",
	}
	got, err := SelectFunding([]ledger.Record{rec}, 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, "p", got.ID)
}

func TestSelector_CustomKind(t *testing.T) {
	s := Selector{RecordName: "Token", AmountField: "balance"}
	recs := []ledger.Record{
		creditsRecord("credits", "900u64", false),
		{ID: "tok", RecordName: "Token", Fields: map[string]string{"balance": "900u64"}},
	}
	got, err := s.Select(recs, 800)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.ID)
}

func TestFilterKindAndUnspent(t *testing.T) {
	recs := []ledger.Record{
		{ID: "1", RecordName: InvoiceRecord},
		{ID: "2", RecordName: FactoredInvoiceRecord, Spent: true},
		{ID: "3", RecordName: InvoiceRecord, Spent: true},
	}
	inv := FilterKind(recs, InvoiceRecord)
	require.Len(t, inv, 2)
	assert.Equal(t, "1", inv[0].ID)
	assert.Equal(t, "3", inv[1].ID)

	un := Unspent(recs)
	require.Len(t, un, 1)
	assert.Equal(t, "1", un[0].ID)
}
