package phone

import "testing"

func TestNormalize_UKLocalFormat(t *testing.T) {
	n := E164Normalizer{}
	got, ok := n.Normalize("07911 123456")
	if !ok {
		t.Fatalf("expected valid UK mobile")
	}
	if got != "+447911123456" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_AlreadyE164(t *testing.T) {
	n := E164Normalizer{}
	got, ok := n.Normalize("+447911123456")
	if !ok || got != "+447911123456" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestNormalize_DigitsOnlyInternational(t *testing.T) {
	n := E164Normalizer{}
	got, ok := n.Normalize("447911123456")
	if !ok || got != "+447911123456" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	n := E164Normalizer{}
	for _, raw := range []string{"", "   ", "not a number", "12345"} {
		if got, ok := n.Normalize(raw); ok {
			t.Fatalf("expected %q to be invalid, got %q", raw, got)
		}
	}
}

func TestNormalize_ReturnsRawOnFailure(t *testing.T) {
	n := E164Normalizer{}
	got, ok := n.Normalize("garbage")
	if ok {
		t.Fatalf("expected invalid")
	}
	if got != "garbage" {
		t.Fatalf("failed normalization should return the input, got %q", got)
	}
}

func TestRepairScientificNotation(t *testing.T) {
	if got := repairScientificNotation("4.47911123456E+11"); got != "447911123456" {
		t.Fatalf("got %q", got)
	}
	if got := repairScientificNotation("07911123456"); got != "07911123456" {
		t.Fatalf("plain numbers must pass through, got %q", got)
	}
}
