package pagination

import (
	"errors"
	"testing"
)

func TestClampPageSize(t *testing.T) {
	t.Parallel()

	cfg := PageSizeConfig{Default: 50, Max: 200}
	tests := []struct {
		in   int
		want int
	}{
		{0, 50},
		{-3, 50},
		{10, 10},
		{200, 200},
		{500, 200},
	}
	for _, tc := range tests {
		if got := ClampPageSize(tc.in, cfg); got != tc.want {
			t.Fatalf("ClampPageSize(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := ClampPageSize(0, PageSizeConfig{}); got != 1 {
		t.Fatalf("ClampPageSize without default = %d, want 1", got)
	}
}

func TestParsePageSize(t *testing.T) {
	t.Parallel()

	cfg := PageSizeConfig{Default: 50, Max: 200}
	for raw, want := range map[string]int{"": 50, " 7 ": 7, "1000": 200} {
		got, err := ParsePageSize(raw, cfg)
		if err != nil {
			t.Fatalf("ParsePageSize(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParsePageSize(%q) = %d, want %d", raw, got, want)
		}
	}
	for _, raw := range []string{"0", "-1", "ten"} {
		if _, err := ParsePageSize(raw, cfg); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("ParsePageSize(%q) err = %v, want ErrInvalidPageSize", raw, err)
		}
	}
}
