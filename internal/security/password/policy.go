package password

import (
	"strconv"
	"unicode"
)

// Policy de contraseñas. El mínimo de la biblioteca es 12 caracteres con
// mayúscula, minúscula y dígito.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	Blacklist     *Blacklist
}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if p.Blacklist.Contains(s) {
		reasons = append(reasons, "blacklisted")
	}
	return len(reasons) == 0, reasons
}

// Describe arma el mensaje para el usuario a partir de la configuración.
func (p Policy) Describe() string {
	msg := "Password must be at least " + strconv.Itoa(p.MinLength) + " characters long"
	var parts []string
	if p.RequireUpper {
		parts = append(parts, "an uppercase letter")
	}
	if p.RequireLower {
		parts = append(parts, "a lowercase letter")
	}
	if p.RequireDigit {
		parts = append(parts, "a digit")
	}
	if p.RequireSymbol {
		parts = append(parts, "a symbol")
	}
	if len(parts) == 0 {
		return msg + "."
	}
	msg += " and contain "
	for i, s := range parts {
		switch {
		case i == 0:
		case i == len(parts)-1:
			msg += " and "
		default:
			msg += ", "
		}
		msg += s
	}
	return msg + "."
}
