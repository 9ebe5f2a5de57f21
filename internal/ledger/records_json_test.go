package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords_AdapterVariants(t *testing.T) {
	raw := []byte(`[
	  {"id":"r1","owner":"aleo1a","program_id":"zk_factor.aleo","recordName":"Invoice","spent":false,
	   "data":{"amount":"5000000u64.private"},"plaintext":"{ amount: 5000000u64.private }"},
	  {"commitment":"c2","owner":"aleo1b","programId":"credits.aleo","type":"credits","spent":true,
	   "recordPlaintext":"{ microcredits: 10u64.private }"}
	]`)

	records, err := DecodeRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Invoice", records[0].RecordName)
	assert.Equal(t, "zk_factor.aleo", records[0].Program)
	assert.Equal(t, "5000000u64", records[0].Field("amount"))
	assert.Equal(t, "r1", records[0].Key())

	assert.Equal(t, "credits", records[1].RecordName)
	assert.True(t, records[1].Spent)
	assert.Equal(t, "10u64", records[1].Field("microcredits"))
	assert.Equal(t, "c2", records[1].Key())
}

func TestDecodeRecords_WrappedAndInvalid(t *testing.T) {
	records, err := DecodeRecords([]byte(`{"records":[{"recordName":"credits"}]}`))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = DecodeRecords([]byte(`{"records":`))
	assert.Error(t, err)

	_, err = DecodeRecords([]byte(`{"foo":1}`))
	assert.Error(t, err)
}

func TestRecordField_UnknownIsEmpty(t *testing.T) {
	r := Record{Plaintext: "{ owner: aleo1x.private }"}
	assert.Equal(t, "", r.Field("microcredits"))
}
