package faces

import "testing"

func TestNormalizeCharacterName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Zoé", "zoe"},
		{"  Luna  ", "luna"},
		{"Marie-Claire", "marie claire"},
		{"BIG BEAR", "big bear"},
		{"Måns", "mans"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeCharacterName(tt.input); got != tt.want {
				t.Errorf("NormalizeCharacterName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatchRosterName(t *testing.T) {
	roster := []string{"Zoé", "Big Bear", "Marie-Claire"}

	tests := []struct {
		label   string
		want    string
		matched bool
	}{
		{"zoe", "Zoé", true},
		{"ZOÉ", "Zoé", true},
		{"big bear", "Big Bear", true},
		{"marie claire", "Marie-Claire", true},
		{"narrator", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := MatchRosterName(tt.label, roster)
			if ok != tt.matched || got != tt.want {
				t.Errorf("MatchRosterName(%q) = (%q, %v), want (%q, %v)",
					tt.label, got, ok, tt.want, tt.matched)
			}
		})
	}
}
