package normalize

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantNil bool
	}{
		{
			name:  "latin american thousands and decimal",
			input: "1.234,56",
			want:  "1234.56",
		},
		{
			name:  "plain dot decimal",
			input: "1649.00",
			want:  "1649.00",
		},
		{
			name:  "comma decimal",
			input: "81,91",
			want:  "81.91",
		},
		{
			name:  "ambiguous comma treated as decimal",
			input: "1,234",
			want:  "1.23",
		},
		{
			name:  "currency symbol stripped",
			input: "$ 1.500,00",
			want:  "1500.00",
		},
		{
			name:  "usd token stripped",
			input: "U$S 20,50",
			want:  "20.50",
		},
		{
			name:  "plain integer",
			input: "500",
			want:  "500.00",
		},
		{
			name:  "embedded whitespace",
			input: " 1 234,00 ",
			want:  "1234.00",
		},
		{
			name:    "non-numeric input",
			input:   "n/a",
			wantNil: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantNil: true,
		},
		{
			name:    "only separators",
			input:   ".,",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseAmount(%q) = %s, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseAmount(%q) = nil, want %s", tt.input, tt.want)
			}
			if got.StringFixed(2) != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got.StringFixed(2), tt.want)
			}
		})
	}
}

func TestParseAmount_Deterministic(t *testing.T) {
	first := ParseAmount("1.234,56")
	second := ParseAmount("1.234,56")
	if first == nil || second == nil {
		t.Fatal("expected both parses to succeed")
	}
	if !first.Equal(*second) {
		t.Errorf("repeated parses differ: %s vs %s", first, second)
	}
}
