package cents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"95245.75", 9524575},
		{"100.00", 10000},
		{"50.5", 5050},
		{"0.01", 1},
		{"95245.75000000", 9524575}, // truncates, does not round
		{"100", 10000},              // no decimal point means whole units
		{"0", 0},
		{"42.", 4200},
		{"0.999", 99}, // third digit dropped
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "12a.50", "10.5x", "-5.00", "1.2.3"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrUnparseable, in)
	}
}

func TestParseRejectsOverflowingWhole(t *testing.T) {
	// Largest integer part that still fits after the *100 scaling.
	got, err := Parse("92233720368547758.07")
	assert.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)

	for _, in := range []string{
		"92233720368547759", // one past the scaling bound
		"92233720368547759.00",
		"92233720368547758080", // past uint64 entirely
		"92233720368547758080.25",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrUnparseable, in)
	}
}
