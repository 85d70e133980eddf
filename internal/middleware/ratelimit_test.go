package middleware

import "testing"

// Redis returns Lua script results as int64 normally and as strings from
// some proxies; asInt64 is the single conversion point for both.
func TestAsInt64(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want int64
	}{
		{"int64", int64(1), 1},
		{"int32", int32(7), 7},
		{"int", 42, 42},
		{"float64", float64(9), 9},
		{"numeric string", "12", 12},
		{"garbage string", "junk", 0},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := asInt64(tc.in); got != tc.want {
				t.Errorf("asInt64(%v) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
