package sheet

import "testing"

func TestParseAddress(t *testing.T) {
	cases := []struct {
		ref  string
		want Position
	}{
		{"A1", Position{Row: 0, Col: 0}},
		{"B7", Position{Row: 6, Col: 1}},
		{"Z1", Position{Row: 0, Col: 25}},
		{"AA1", Position{Row: 0, Col: 26}},
		{"AB12", Position{Row: 11, Col: 27}},
	}
	for _, tc := range cases {
		got, err := ParseAddress(tc.ref)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAddress(%q) = %+v, want %+v", tc.ref, got, tc.want)
		}
	}
}

func TestParseAddressRejectsMalformedInput(t *testing.T) {
	for _, ref := range []string{"", "1A", "a1", "A", "12", "A1B", "'Sheet'!A1"} {
		if _, err := ParseAddress(ref); err == nil {
			t.Fatalf("ParseAddress(%q) should fail", ref)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	cases := []struct {
		pos  Position
		want string
	}{
		{Position{Row: 0, Col: 0}, "A1"},
		{Position{Row: 0, Col: 26}, "AA1"},
		{Position{Row: 11, Col: 27}, "AB12"},
		{Position{Row: 99, Col: 701}, "ZZ100"},
	}
	for _, tc := range cases {
		if got := FormatAddress(tc.pos); got != tc.want {
			t.Fatalf("FormatAddress(%+v) = %q, want %q", tc.pos, got, tc.want)
		}
	}
}

func TestAddressRoundTripIsStable(t *testing.T) {
	for _, ref := range []string{"A1", "Z99", "AA1", "AZ12", "BA3", "ZZ1000"} {
		pos, err := ParseAddress(ref)
		if err != nil {
			t.Fatalf("parse %q: %v", ref, err)
		}
		again, err := ParseAddress(FormatAddress(pos))
		if err != nil {
			t.Fatalf("reparse %q: %v", ref, err)
		}
		if again != pos {
			t.Fatalf("round trip of %q drifted: %+v != %+v", ref, again, pos)
		}
	}
}

func TestKeyFormat(t *testing.T) {
	if got := Key(Position{Row: 3, Col: 7}); got != "3-7" {
		t.Fatalf("Key = %q, want 3-7", got)
	}
}
