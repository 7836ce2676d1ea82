package version

import "testing"

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0.3.0", "0.3.0", true},
		{"0.3.0", "0.4.1", true},
		{"1.0.0", "1.9.9", true},
		{"1.0.0", "2.0.0", false},
		{"v1.2.3", "1.4.0", true},
		{"dev", "0.3.0", true},
		{"0.3.0", "garbage", true},
	}
	for _, tc := range tests {
		if got := Compatible(tc.a, tc.b); got != tc.want {
			t.Errorf("Compatible(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
