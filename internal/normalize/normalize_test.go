package normalize

import "testing"

func TestNormalizeBasics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  Harmony Health Clinic  ", "harmony health clinic"},
		{"collapse whitespace", "824   Ostrum\tSt", "824 ostrum st"},
		{"strip quotes and brackets", `"Greenwood" [Clinic]`, "greenwood clinic"},
		{"strip semicolons and colons", "Floor: 2;", "fl 2"},
		{"keep hyphen and apostrophe", "412-239-9837 O'Brien", "412-239-9837 o'brien"},
		{"trailing period stripped", "824 Ostrum St.", "824 ostrum st"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeAbbreviations(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"824 Ostrum Street", "824 Ostrum St"},
		{"824 Ostrum St.", "824 Ostrum St"},
		{"999 Mission Avenue", "999 Mission Ave"},
		{"Suite 5A", "Ste 5A"},
		{"100 Main Boulevard", "100 Main Blvd"},
		{"22 Northeast Drive", "22 NE Dr"},
		{"5 North Road", "5 N Rd"},
		{"Apartment 3", "Apt 3"},
	}
	for _, tt := range tests {
		if !Equal(tt.a, tt.b) {
			t.Errorf("expected %q == %q after normalization (got %q vs %q)",
				tt.a, tt.b, Normalize(tt.a), Normalize(tt.b))
		}
	}
}

func TestNormalizeDegreeInitialisms(t *testing.T) {
	if !Equal("Sophia Garcia, M.D.", "sophia garcia, md") {
		t.Fatalf("M.D. should equal md: %q vs %q",
			Normalize("Sophia Garcia, M.D."), Normalize("sophia garcia, md"))
	}
	if !Equal("Jane Roe, D.O.", "jane roe, do") {
		t.Fatalf("D.O. should equal do")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Sophia Garcia, M.D.",
		"824 Ostrum Street, Suite 5A",
		"  GREENWOOD   Clinic; ",
		"412-239-9837",
		"22 Northeast Drive",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestEqualDistinctValues(t *testing.T) {
	if Equal("824 Ostrum St", "825 Ostrum St") {
		t.Error("different house numbers should not compare equal")
	}
	if Equal("Harmony Health Clinic", "Greenwood Clinic") {
		t.Error("different clinic names should not compare equal")
	}
}
