package envutil

import "testing"

func TestParseBool(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{" Yes ", true},
		{"on", true},
		{"", false},
		{"0", false},
		{"off", false},
		{"nope", false},
	}
	for _, tc := range cases {
		if got := ParseBool(tc.value); got != tc.want {
			t.Fatalf("ParseBool(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
