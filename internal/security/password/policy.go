package password

import (
	"strconv"
	"strings"
	"unicode"
)

type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	// Blacklist opcional de contraseñas comunes.
	Blacklist *Blacklist
}

// Strong es la política del registro: mínimo 8, mayúscula, minúscula, número y símbolo.
var Strong = Policy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireDigit: true, RequireSymbol: true}

// Validate retorna las razones de rechazo (too_short, missing_upper, ...).
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

// Describe arma el mensaje para el usuario a partir de la política.
func (p Policy) Describe() string {
	var req []string
	if p.RequireUpper {
		req = append(req, "mayúscula")
	}
	if p.RequireLower {
		req = append(req, "minúscula")
	}
	if p.RequireDigit {
		req = append(req, "número")
	}
	if p.RequireSymbol {
		req = append(req, "caracter especial")
	}
	msg := "La contraseña debe tener mínimo " + strconv.Itoa(p.MinLength) + " caracteres"
	switch len(req) {
	case 0:
		return msg
	case 1:
		return msg + " y " + req[0]
	default:
		return msg + ", " + strings.Join(req[:len(req)-1], ", ") + " y " + req[len(req)-1]
	}
}
