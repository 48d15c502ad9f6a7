package validation

import (
	"net/mail"
	"regexp"
	"strings"
)

// Person name rules:
// - Latin or Cyrillic letters and hyphen only.
// - Length 1..50.
// Examples valid: Ann, Mary-Jane, Анна, Ёлкин
// Examples invalid: "", Ann1, "Ann Lee", O'Neil
var personNameRe = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё-]{1,50}$`)

// Username rules: 3..50 chars of [A-Za-z0-9._-].
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{3,50}$`)

func ValidPersonName(s string) bool {
	return personNameRe.MatchString(s)
}

func ValidUsername(s string) bool {
	return usernameRe.MatchString(s)
}

// ValidEmail acepta una dirección simple (sin display name).
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 {
		return false
	}
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// HasEmailDomain compara el sufijo sin distinguir mayúsculas (ej: "@gmail.com").
func HasEmailDomain(email, domain string) bool {
	if domain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), strings.ToLower(domain))
}
