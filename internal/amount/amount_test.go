package amount

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestZeroValue(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.True(t, a.Equal(Zero))
	assert.Equal(t, "0", a.String())
	assert.True(t, FromUint64(0).Equal(Zero))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"0", "0", nil},
		{"42", "42", nil},
		{"007", "7", nil},
		{"340282366920938463463374607431768211456", "340282366920938463463374607431768211456", nil},
		{"", "", ErrSyntax},
		{"-1", "", ErrSyntax},
		{"+1", "", ErrSyntax},
		{"1.5", "", ErrSyntax},
		{"1e9", "", ErrSyntax},
		{"1_000", "", ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromBig_RejectsNegative(t *testing.T) {
	_, err := FromBig(big.NewInt(-5))
	require.ErrorIs(t, err, ErrNegative)

	a, err := FromBig(nil)
	require.NoError(t, err)
	assert.True(t, a.IsZero())
}

func TestFromBig_CopiesArgument(t *testing.T) {
	n := big.NewInt(10)
	a, err := FromBig(n)
	require.NoError(t, err)

	n.SetInt64(99)
	assert.Equal(t, "10", a.String())

	b := a.BigInt()
	b.SetInt64(1)
	assert.Equal(t, "10", a.String())
}

func TestOrdering(t *testing.T) {
	ten := FromUint64(10)
	twentyFive := FromUint64(25)

	assert.Equal(t, -1, ten.Cmp(twentyFive))
	assert.Equal(t, 1, twentyFive.Cmp(ten))
	assert.Equal(t, 0, ten.Cmp(FromUint64(10)))
	assert.True(t, ten.Less(twentyFive))
	assert.True(t, twentyFive.Greater(ten))
	assert.False(t, ten.Greater(ten))
}

func TestAdd(t *testing.T) {
	a := MustParse("18446744073709551615") // max uint64
	got := a.Add(FromUint64(1))
	assert.Equal(t, "18446744073709551616", got.String())
	assert.Equal(t, "18446744073709551615", a.String(), "operands are not mutated")

	assert.True(t, Zero.Add(Zero).IsZero())
	assert.Equal(t, "7", Zero.Add(FromUint64(7)).String())
}

func TestSub(t *testing.T) {
	got, err := FromUint64(25).Sub(FromUint64(10))
	require.NoError(t, err)
	assert.Equal(t, "15", got.String())

	got, err = FromUint64(10).Sub(FromUint64(10))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestSub_UnderflowDoesNotWrap(t *testing.T) {
	got, err := FromUint64(10).Sub(FromUint64(25))
	require.ErrorIs(t, err, ErrArithmeticUnderflow)
	assert.True(t, got.IsZero())
	assert.Contains(t, err.Error(), "10 - 25")
}

func TestDiff(t *testing.T) {
	d, c := Diff(FromUint64(25), FromUint64(10))
	assert.Equal(t, "15", d.String())
	assert.Equal(t, 1, c)

	d, c = Diff(FromUint64(10), FromUint64(25))
	assert.Equal(t, "15", d.String())
	assert.Equal(t, -1, c)

	d, c = Diff(FromUint64(10), FromUint64(10))
	assert.True(t, d.IsZero())
	assert.Equal(t, 0, c)
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(MustParse("123456789012345678901234567890"))
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"15"`), &a))
	assert.Equal(t, "15", a.String())

	require.NoError(t, json.Unmarshal([]byte(`15`), &a))
	assert.Equal(t, "15", a.String())

	require.Error(t, json.Unmarshal([]byte(`-15`), &a))
}

func TestYAML(t *testing.T) {
	var doc struct {
		Amount Amount `yaml:"amount"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("amount: 100\n"), &doc))
	assert.Equal(t, "100", doc.Amount.String())

	require.NoError(t, yaml.Unmarshal([]byte("amount: \"99999999999999999999\"\n"), &doc))
	assert.Equal(t, "99999999999999999999", doc.Amount.String())

	require.Error(t, yaml.Unmarshal([]byte("amount: -3\n"), &doc))
}

func TestScanValue(t *testing.T) {
	v, err := FromUint64(42).Value()
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	var a Amount
	require.NoError(t, a.Scan("17"))
	assert.Equal(t, "17", a.String())
	require.NoError(t, a.Scan([]byte("18")))
	assert.Equal(t, "18", a.String())
	require.NoError(t, a.Scan(int64(19)))
	assert.Equal(t, "19", a.String())
	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())
	require.Error(t, a.Scan(int64(-1)))
	require.Error(t, a.Scan(1.5))
}
