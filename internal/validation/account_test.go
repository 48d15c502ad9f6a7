package validation

import "testing"

func TestValidPersonName(t *testing.T) {
	for _, v := range []string{"Ann", "Mary-Jane", "Анна", "Ёлкин", "Салтыков-Щедрин"} {
		if !ValidPersonName(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	for _, v := range []string{"", "Ann1", "Ann Lee", "O'Neil", "<b>"} {
		if ValidPersonName(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidUsername(t *testing.T) {
	if !ValidUsername("reader_01") || ValidUsername("ab") || ValidUsername("bad space") {
		t.Fatal("username rules")
	}
}

func TestValidEmail(t *testing.T) {
	if !ValidEmail("reader@gmail.com") {
		t.Fatal("expected valid")
	}
	for _, v := range []string{"", "reader", "Reader <reader@gmail.com>", "a@"} {
		if ValidEmail(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestHasEmailDomain(t *testing.T) {
	if !HasEmailDomain("Reader@GMAIL.com", "@gmail.com") {
		t.Fatal("case-insensitive suffix")
	}
	if HasEmailDomain("reader@gmail.com.evil.io", "@gmail.com") {
		t.Fatal("suffix must be at the end")
	}
	if !HasEmailDomain("x@y.z", "") {
		t.Fatal("empty domain accepts all")
	}
}
