package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leg(amount, currency string) Transfer {
	return Transfer{Amount: decimal.RequireFromString(amount), Currency: currency}
}

func TestSameLeg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Transfer
		same bool
	}{
		{"identical", leg("5", "ATOM"), leg("5", "ATOM"), true},
		{"different scale same value", leg("5.00", "ATOM"), leg("5", "ATOM"), true},
		{"different amount", leg("5", "ATOM"), leg("4", "ATOM"), false},
		{"different currency", leg("5", "ATOM"), leg("5", "OSMO"), false},
		{"endpoints ignored", Transfer{Amount: decimal.NewFromInt(1), Currency: "X", Source: "a"}, Transfer{Amount: decimal.NewFromInt(1), Currency: "X", Destination: "b"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.same, tc.a.SameLeg(tc.b))
		})
	}
}

func TestRemoveLeg(t *testing.T) {
	t.Parallel()

	ts := []Transfer{leg("5", "A"), leg("3", "B"), leg("5", "A")}

	out, removed := RemoveLeg(ts, leg("5", "A"))
	require.True(t, removed)
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].Currency)
	assert.Equal(t, "A", out[1].Currency)

	// Only one occurrence is removed per call.
	out2, removed := RemoveLeg(out, leg("5", "A"))
	require.True(t, removed)
	assert.Len(t, out2, 1)

	out3, removed := RemoveLeg(out2, leg("5", "A"))
	assert.False(t, removed)
	assert.Len(t, out3, 1)
}

func TestRemoveLegNoMatchKeepsInput(t *testing.T) {
	t.Parallel()

	ts := []Transfer{leg("1", "X")}
	out, removed := RemoveLeg(ts, leg("2", "X"))
	assert.False(t, removed)
	assert.Equal(t, ts, out)
}
