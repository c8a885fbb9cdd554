package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid E.164 format", "+972541234567", "+972541234567"},
		{"with spaces", "+972 54 123 4567", "+972541234567"},
		{"with dashes", "+972-54-123-4567", "+972541234567"},
		{"with parentheses", "+1 (650) 253-0000", "+16502530000"},
		{"leading and trailing spaces", "  +972541234567  ", "+972541234567"},
		{"local number", "054-123-4567", "+972541234567"},
		{"local number without trunk prefix", "541234567", "+972541234567"},
		{"too short", "+97254", ""},
		{"empty string", "", ""},
		{"letters", "call me", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
			// idempotent
			if got := NormalizePhone(NormalizePhone(tt.input)); got != tt.want {
				t.Errorf("NormalizePhone twice(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIn_RegionOrder(t *testing.T) {
	if got := NormalizePhoneIn("(650) 253-0000", "US", "IL"); got != "+16502530000" {
		t.Errorf("NormalizePhoneIn US first = %q", got)
	}
	if got := NormalizePhoneIn("054-123-4567", "IL", "US"); got != "+972541234567" {
		t.Errorf("NormalizePhoneIn IL first = %q", got)
	}
	if got := NormalizePhoneIn("12", "IL", "US"); got != "" {
		t.Errorf("NormalizePhoneIn too short = %q", got)
	}
}

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Ada   Lovelace ", "Ada Lovelace"},
		{"Ada\t\nLovelace", "Ada Lovelace"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TrimAndNormalize(tt.input); got != tt.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeSubjectAndEmail(t *testing.T) {
	if got := NormalizeSubject("  Organic   Chemistry "); got != "organic chemistry" {
		t.Errorf("NormalizeSubject = %q", got)
	}
	if got := NormalizeEmail(" Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestNormalizeStringSlice(t *testing.T) {
	got := NormalizeStringSlice([]string{" Maths", "maths ", "", "Physics"}, NormalizeSubject)
	want := []string{"maths", "physics"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
