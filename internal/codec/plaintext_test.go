package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const invoicePlaintext = `{
  owner: aleo1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq3ljyzc.private,
  debtor: aleo1zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz.private,
  amount: 5000000u64.private,
  due_date: 1767225600u64.private,
  invoice_hash: 1234field.private,
  metadata: 97u128.private,
  _nonce: 5512group.public,
  _version: 1u8.public
}`

func TestExtractField(t *testing.T) {
	assert.Equal(t, "5000000u64", ExtractField(invoicePlaintext, "amount"))
	assert.Equal(t, "1234field", ExtractField(invoicePlaintext, "invoice_hash"))
	assert.Equal(t, "5512group", ExtractField(invoicePlaintext, "_nonce"))
}

func TestExtractField_Missing(t *testing.T) {
	assert.Equal(t, "", ExtractField(invoicePlaintext, "microcredits"))
	assert.Equal(t, "", ExtractField("", "amount"))
	assert.Equal(t, "", ExtractField("garbage without structure", "amount"))
	assert.Equal(t, "", ExtractField(invoicePlaintext, ""))
}

func TestExtractField_PrefixDoesNotMatch(t *testing.T) {
	blob := "{ advance_amount: 10u64.private, amount: 20u64.private }"
	assert.Equal(t, "20u64", ExtractField(blob, "amount"))
	assert.Equal(t, "10u64", ExtractField(blob, "advance_amount"))
}

func TestExtractField_OrderIndependentAndSingleLine(t *testing.T) {
	a := "{ microcredits: 700u64.private, owner: aleo1x.private }"
	b := "{\n owner: aleo1x.private,\n microcredits: 700u64.private\n}"
	assert.Equal(t, "700u64", ExtractField(a, "microcredits"))
	assert.Equal(t, "700u64", ExtractField(b, "microcredits"))
	assert.Equal(t, "700u64", ExtractField("microcredits: 700u64.private", "microcredits"))
}

func TestExtractField_SkipsNestedMembers(t *testing.T) {
	blob := `{
  owner: aleo1x.private,
  terms: {
    amount: 1u64.private,
    rate: 9000u16.private
  },
  amount: 2u64.private
}`
	assert.Equal(t, "2u64", ExtractField(blob, "amount"))
	assert.Equal(t, "", ExtractField(blob, "rate"))

	oneLine := "{ owner: aleo1x.private, terms: { amount: 1u64.private, rate: 9000u16.private }, amount: 2u64.private }"
	assert.Equal(t, "2u64", ExtractField(oneLine, "amount"))
	assert.Equal(t, "", ExtractField(oneLine, "rate"))
	assert.Equal(t, map[string]string{"owner": "aleo1x", "amount": "2u64"}, ParsePlaintext(oneLine))

	single := "{ a: { b: 1u8.public }, c: 2u8.public }"
	assert.Equal(t, map[string]string{"c": "2u8"}, ParsePlaintext(single))
}

func TestParsePlaintext(t *testing.T) {
	fields := ParsePlaintext(invoicePlaintext)
	assert.Len(t, fields, 8)
	assert.Equal(t, "1767225600u64", fields["due_date"])
	assert.Equal(t, "97u128", fields["metadata"])
	_, ok := fields["missing"]
	assert.False(t, ok)
}
