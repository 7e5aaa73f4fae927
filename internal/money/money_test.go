package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1999.995", "2000.00"},
		{"10.004", "10.00"},
		{"10.005", "10.01"},
		{"10.014", "10.01"},
		{"0", "0.00"},
		{"2500", "2500.00"},
		{"0.125", "0.13"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, Round(d).StringFixed(2), "Round(%s)", tc.in)
	}
}

func TestRoundPtr(t *testing.T) {
	assert.Nil(t, RoundPtr(nil))

	d := decimal.RequireFromString("3.456")
	got := RoundPtr(&d)
	require.NotNil(t, got)
	assert.Equal(t, "3.46", got.StringFixed(2))
	// original is untouched
	assert.Equal(t, "3.456", d.String())
}

func TestZero(t *testing.T) {
	assert.True(t, Zero().IsZero())
}
