package snapshot

import "testing"

func TestParseMinute(t *testing.T) {
	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"67", 67, true},
		{"45+2", 45, true},
		{"90+5", 90, true},
		{"+3", 0, false},
		{"", 0, false},
		{"HT", 0, false},
		{"12'", 12, true},
	}
	for _, tt := range tests {
		got, ok := ParseMinute(tt.text)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseMinute(%q) = (%d, %v), want (%d, %v)", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveMinute(t *testing.T) {
	ptr := func(v int) *int { return &v }

	tests := []struct {
		name       string
		primary    *int
		duplicates []int
		want       *int
	}{
		{"primary trusted", ptr(67), []int{66}, ptr(67)},
		{"primary low, plausible fallback", ptr(1), []int{71, 70}, ptr(71)},
		{"primary low, implausible fallback", ptr(3), []int{12}, ptr(3)},
		{"unknown primary, plausible fallback", nil, []int{58}, ptr(58)},
		{"unknown primary, no fallback", nil, nil, nil},
		{"boundary: suspect threshold exclusive", ptr(10), []int{80}, ptr(80)},
		{"boundary: just above threshold", ptr(11), []int{80}, ptr(11)},
	}
	for _, tt := range tests {
		got := ResolveMinute(tt.primary, tt.duplicates)
		switch {
		case got == nil && tt.want != nil:
			t.Errorf("%s: got nil, want %d", tt.name, *tt.want)
		case got != nil && tt.want == nil:
			t.Errorf("%s: got %d, want nil", tt.name, *got)
		case got != nil && *got != *tt.want:
			t.Errorf("%s: got %d, want %d", tt.name, *got, *tt.want)
		}
	}
}

func TestIsFirstHalfStoppage(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"45+2", true},
		{"45+", false},
		{"90+4", false},
		{"67", false},
		{"+2", false},
		{"HT", false},
	}
	for _, tt := range tests {
		if got := IsFirstHalfStoppage(tt.text); got != tt.want {
			t.Errorf("IsFirstHalfStoppage(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
