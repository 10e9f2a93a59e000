package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"5.", "5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyPlainAndFormat(t *testing.T) {
	cases := []struct {
		in, plain, formatted string
	}{
		{"12.50", "12.5", "$12.50"},
		{"5.00", "5.0", "$5.00"},
		{"0", "0.0", "$0.00"},
		{"1234.567", "1234.567", "$1234.57"},
	}
	for _, tc := range cases {
		m := MustMoney(tc.in)
		if m.Plain() != tc.plain {
			t.Fatalf("%s plain: got %s want %s", tc.in, m.Plain(), tc.plain)
		}
		if m.Format("$") != tc.formatted {
			t.Fatalf("%s format: got %s want %s", tc.in, m.Format("$"), tc.formatted)
		}
	}
}

func TestMoneyAdd(t *testing.T) {
	sum := MustMoney("12.50").Add(MustMoney("5.00"))
	if sum.Plain() != "17.5" {
		t.Fatalf("got %s", sum.Plain())
	}
}

func TestParseStoredAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"12.5", "12.5", true},
		{"0.30000000000000004", "0.30000000000000004", true},
		{"1.005", "1.005", true},
		{"5,25", "5.25", true},
		{"0", "0", true},
		{"-0.01", "", false},
		{"", "", false},
		{"twelve", "", false},
	}
	for _, tc := range cases {
		got, err := ParseStoredAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
