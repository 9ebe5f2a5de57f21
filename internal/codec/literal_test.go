package codec

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Unsigned literals
// =============================================================================

func TestEncodeUnsigned(t *testing.T) {
	tests := []struct {
		name    string
		value   *big.Int
		bits    int
		want    string
		wantErr bool
	}{
		{"u64", big.NewInt(5000000), 64, "5000000u64", false},
		{"u16 max", big.NewInt(65535), 16, "65535u16", false},
		{"zero", big.NewInt(0), 8, "0u8", false},
		{"u16 overflow", big.NewInt(65536), 16, "", true},
		{"negative", big.NewInt(-1), 64, "", true},
		{"unsupported width", big.NewInt(1), 24, "", true},
		{"nil", nil, 64, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeUnsigned(tt.value, tt.bits)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrEncoding))
				var encErr *EncodingError
				assert.True(t, errors.As(err, &encErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUnsigned_U128Boundary(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	lit, err := EncodeUnsigned(max, 128)
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455u128", lit)

	_, err = EncodeUnsigned(new(big.Int).Add(max, big.NewInt(1)), 128)
	assert.Error(t, err)
}

func TestEncodeUnsignedString(t *testing.T) {
	lit, err := EncodeUnsignedString(" 9000 ", 16)
	require.NoError(t, err)
	assert.Equal(t, "9000u16", lit)

	for _, bad := range []string{"", "12.5", "-3", "1e6", "abc"} {
		_, err := EncodeUnsignedString(bad, 64)
		assert.Error(t, err, bad)
	}
}

func TestDecodeUnsigned(t *testing.T) {
	n, bits, err := DecodeUnsigned("5000000u64.private")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000), n.Int64())
	assert.Equal(t, 64, bits)

	for _, bad := range []string{"", "5000000", "u64", "12u", "12u7", "1_000u64", "-5u64", "5u64u", "70000u16", "abcu64"} {
		_, _, err := DecodeUnsigned(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrDecoding), bad)
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	for _, bits := range []int{8, 16, 32, 64, 128} {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		values := []*big.Int{
			big.NewInt(0),
			big.NewInt(1),
			new(big.Int).Rsh(limit, 1),
			new(big.Int).Sub(limit, big.NewInt(1)),
		}
		for _, v := range values {
			lit, err := EncodeUnsigned(v, bits)
			require.NoError(t, err)
			got, gotBits, err := DecodeUnsigned(lit)
			require.NoError(t, err)
			assert.Equal(t, 0, v.Cmp(got), "u%d %s", bits, v)
			assert.Equal(t, bits, gotBits)
		}
	}
}

func TestDecodeU64AndU16(t *testing.T) {
	v, err := DecodeU64("42000000000u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(42_000_000000), v)

	_, err = DecodeU64("340282366920938463463374607431768211455u128")
	assert.Error(t, err)

	r, err := DecodeU16("9000u16.public")
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), r)

	_, err = DecodeU16("70000u32")
	assert.Error(t, err)
}

// =============================================================================
// Field, bool and address literals
// =============================================================================

func TestFieldLiterals(t *testing.T) {
	lit, err := EncodeField(big.NewInt(123))
	require.NoError(t, err)
	assert.Equal(t, "123field", lit)

	n, err := DecodeField("123field.private")
	require.NoError(t, err)
	assert.Equal(t, int64(123), n.Int64())

	_, err = EncodeField(FieldModulus)
	assert.Error(t, err)
	_, err = DecodeField(FieldModulus.String() + "field")
	assert.Error(t, err)
	_, err = DecodeField("123u64")
	assert.Error(t, err)
}

func TestBoolLiterals(t *testing.T) {
	b, err := DecodeBool("true.private")
	require.NoError(t, err)
	assert.True(t, b)
	assert.Equal(t, "false", EncodeBool(false))
	_, err = DecodeBool("yes")
	assert.Error(t, err)
}

func TestAddress(t *testing.T) {
	valid := "aleo1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq3ljyzc"
	got, err := EncodeAddress("  " + valid + " ")
	require.NoError(t, err)
	assert.Equal(t, valid, got)

	_, err = EncodeAddress("aleo1short")
	assert.Error(t, err)
	_, err = EncodeAddress("btc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq3ljyzc")
	assert.Error(t, err)
	// 'b' is outside the bech32 alphabet
	_, err = EncodeAddress("aleo1bqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq3ljyzc")
	assert.Error(t, err)

	addr, err := DecodeAddress(valid + ".private")
	require.NoError(t, err)
	assert.Equal(t, valid, addr)
}
