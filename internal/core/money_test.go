package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"1000", 100000, true},
		{"-1", 0, false},
		{"-5", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		100000: "1000.00",
		25000:  "250.00",
		5:      "0.05",
		-5000:  "-50.00",
		0:      "0.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: expected %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	for _, in := range []string{`12.5`, `"12.50"`, `12.499`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.Cents != 1250 {
			t.Fatalf("%s: expected 1250 cents, got %d", in, m.Cents)
		}
	}
	var m Money
	if err := json.Unmarshal([]byte(`"twelve"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestMoneyUnmarshalJSONRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{`184467440737095516.17`, `"100000000000.01"`, `-100000000000.01`, `1e30`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err == nil {
			t.Fatalf("%s: expected error, got %d cents", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`100000000000`), &m); err != nil {
		t.Fatalf("largest amount rejected: %v", err)
	}
	if m.Cents != MaxAmountCents {
		t.Fatalf("expected %d cents, got %d", MaxAmountCents, m.Cents)
	}
}

func TestParseDecimalToCentsCap(t *testing.T) {
	if _, err := ParseDecimalToCents("100000000000"); err != nil {
		t.Fatalf("cap itself must be accepted: %v", err)
	}
	if _, err := ParseDecimalToCents("100000000000.01"); err == nil {
		t.Fatalf("expected error above the cap")
	}
}

func TestMoneyFloat64(t *testing.T) {
	if got := (Money{Cents: 1250}).Float64(); got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}
}
