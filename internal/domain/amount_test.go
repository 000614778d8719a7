package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"0", 0},
		{"1", 1_000_000_000},
		{"3", 3_000_000_000},
		{"0.1", 100_000_000},
		{"2.5", 2_500_000_000},
		{"0.000000001", 1},
		{"  1.5  ", 1_500_000_000},
		{"10.000000000", 10_000_000_000},
		{".5", 500_000_000},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseAmountRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		".",
		"abc",
		"1.2.3",
		"-1",
		"1,5",
		"0.0000000001", // 10 decimal places
		"99999999999999999999999999",
	} {
		_, err := ParseAmount(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "3", FormatAmount(3_000_000_000))
	assert.Equal(t, "0.1", FormatAmount(100_000_000))
	assert.Equal(t, "2.5", FormatAmount(2_500_000_000))
	assert.Equal(t, "0.000000001", FormatAmount(1))
	assert.Equal(t, "1.000000001", FormatAmount(1_000_000_001))
}

func TestAmountRoundTrip(t *testing.T) {
	for _, units := range []uint64{
		0, 1, 9, 10, 999_999_999, 1_000_000_000,
		1_234_567_890, 500_000_000, 1_000_000_000_000_000,
	} {
		parsed, err := ParseAmount(FormatAmount(units))
		require.NoError(t, err)
		assert.Equal(t, units, parsed, fmt.Sprintf("units %d", units))
	}
}

func TestSideUnits(t *testing.T) {
	pos := UserPosition{TrueUnits: 5, FalseUnits: 3}
	assert.Equal(t, uint64(5), pos.SideUnits(SideTrue))
	assert.Equal(t, uint64(3), pos.SideUnits(SideFalse))
	assert.Equal(t, uint64(0), pos.SideUnits(SideNone))
}
