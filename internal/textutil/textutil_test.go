package textutil

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(555) 123-4567", "+15551234567", true},
		{"1-555-123-4567", "+15551234567", true},
		{"+44 20 7946 0958", "+442079460958", true},
		{"555-1234", "", false},
		{"my number is unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizePhone(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatPhoneAndTel(t *testing.T) {
	if got := FormatPhone("+15551234567"); got != "(555) 123-4567" {
		t.Fatalf("unexpected display format %q", got)
	}
	if got := FormatPhone("+44 20 7946 0958"); got != "+44 20 7946 0958" {
		t.Fatalf("international numbers must pass through, got %q", got)
	}
	if got := FormatPhone(NotProvided); got != NotProvided {
		t.Fatalf("placeholder must pass through, got %q", got)
	}
	tel := map[string]string{
		"555-123-4567":  "+15551234567",
		"15551234567":   "+15551234567",
		"+442079460958": "+442079460958",
		"4420794":       "+4420794",
		NotProvided:     "",
	}
	for in, want := range tel {
		if got := TelNumber(in); got != want {
			t.Fatalf("TelNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateAndTitle(t *testing.T) {
	if got := Truncate("Furnace making a grinding noise at night", 30); got != "Furnace making a grinding nois..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 30); got != "short" {
		t.Fatalf("short strings must not change, got %q", got)
	}
	if got := TitleWords("sAN fRANCISCO"); got != "San Francisco" {
		t.Fatalf("unexpected title case %q", got)
	}
}

func TestContainsPhrase(t *testing.T) {
	if !ContainsPhrase("My AC isn't working!", "ac") {
		t.Fatal("expected word match")
	}
	if ContainsPhrase("I have a cactus", "ac") {
		t.Fatal("substring inside a word must not match")
	}
	if !ContainsPhrase("The heating not working since monday", "heating not working") {
		t.Fatal("expected multi-word match")
	}
	if !ContainsAnyPhrase("kids are freezing", []string{"tonight", "freezing"}) {
		t.Fatal("expected any-phrase match")
	}
	if got := FirstNonEmpty(" ", "", " b "); got != "b" {
		t.Fatalf("unexpected first non-empty %q", got)
	}
}
