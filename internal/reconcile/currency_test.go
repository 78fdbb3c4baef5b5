package reconcile

import "testing"

func TestCleanCurrency(t *testing.T) {
	cases := []struct {
		in       string
		expected float64
	}{
		{"1234", 1234},
		{"1,234.56", 1234.56},
		{"$1,234.56", 1234.56},
		{"  42  ", 42},
		{"(1,234.56)", -1234.56},
		{"($500)", -500},
		{"-17", -17},
		{"", 0},
		{"n/a", 0},
		{"--", 0},
		{"12 units", 12},
	}
	for _, tc := range cases {
		if got := CleanCurrency(tc.in); got != tc.expected {
			t.Errorf("CleanCurrency(%q) = %v, want %v", tc.in, got, tc.expected)
		}
	}
}
