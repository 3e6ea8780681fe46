package canon

import "testing"

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"  Héllo   World  ",
		"ALREADY lower",
		"curly ’quotes’ and “double”",
		"em—dash and en–dash",
		"",
		"ﬁnancial ligature",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCanonicalize_NoASCIIUppercase(t *testing.T) {
	out := Canonicalize("Hello WORLD")
	for _, r := range out {
		if r >= 'A' && r <= 'Z' {
			t.Fatalf("expected no ASCII uppercase in %q", out)
		}
	}
}

func TestCanonicalize_NoDoubleSpace(t *testing.T) {
	out := Canonicalize("a    b\t\tc\n\nd")
	if want := "a b c d"; out != want {
		t.Errorf("Canonicalize() = %q, want %q", out, want)
	}
}

func TestCanonicalize_PunctuationFold(t *testing.T) {
	out := Canonicalize("it’s a “test” — really")
	if out != "it's a \"test\" - really" {
		t.Errorf("unexpected punctuation fold result: %q", out)
	}
}

func TestEmail_StripsPlusTagAndDots(t *testing.T) {
	got := Email("John.Doe+newsletter@Example.com", nil)
	if len(got) != 1 || got[0] != "johndoe@example.com" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestEmail_AliasFanOut(t *testing.T) {
	aliases := AliasMap{"googlemail.com": {"gmail.com"}}
	got := Email("jane@googlemail.com", aliases)
	if len(got) != 1 || got[0] != "jane@gmail.com" {
		t.Fatalf("unexpected alias rewrite: %v", got)
	}
}

func TestEmail_MultiAliasFanOutEmitsBoth(t *testing.T) {
	aliases := AliasMap{"example.org": {"example.com", "example.net"}}
	got := Email("user@example.org", aliases)
	if len(got) != 2 {
		t.Fatalf("expected fan-out of 2, got %v", got)
	}
}

func TestIP_CanonicalFormIPv4(t *testing.T) {
	canonical, ok := IP("  192.168.1.1  ")
	if !ok {
		t.Fatal("expected valid IPv4")
	}
	if canonical != "192.168.1.1" {
		t.Errorf("IP() = %q, want 192.168.1.1", canonical)
	}
}

func TestIP_CanonicalFormIPv6(t *testing.T) {
	canonical, ok := IP("2001:0db8:0000:0000:0000:0000:0000:0001")
	if !ok {
		t.Fatal("expected valid IPv6")
	}
	if canonical != "2001:db8::1" {
		t.Errorf("IP() = %q, want 2001:db8::1", canonical)
	}
}

func TestIP_RejectsInvalid(t *testing.T) {
	if _, ok := IP("not an ip"); ok {
		t.Fatal("expected invalid IP to fail")
	}
}
