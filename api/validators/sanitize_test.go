package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "trims and folds", input: "  Sharma \t General\n Store  ", want: "Sharma General Store"},
		{name: "drops control", input: "Atta\x00 5kg\x07", want: "Atta 5kg"},
		{name: "rune safe truncation", input: "अन्नपूर्णा ट्रेडर्स", maxLen: 4, want: "अन्न"},
		{name: "no trailing space at limit", input: "Toor Dal", maxLen: 5, want: "Toor"},
		{name: "unlimited", input: "Basmati 1kg", maxLen: 0, want: "Basmati 1kg"},
		{name: "empty", input: "   ", maxLen: 10, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input, tt.maxLen); got != tt.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
