// Package email holds small helpers for working with submitter addresses.
package email

import (
	"strings"
	"unicode"
)

// Valid reports whether the address has the minimal shape we require at the
// submission boundary: one '@' with a non-empty local part and a domain
// containing a dot. Full RFC validation is the mail provider's problem.
func Valid(address string) bool {
	at := strings.IndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return false
	}
	domain := address[at+1:]
	if strings.ContainsRune(address[at+1:], '@') {
		return false
	}
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// DeriveNameFromEmail guesses a first/last name pair from the local part of
// an address, for use in notification greetings when the submitter gave no
// display name.
func DeriveNameFromEmail(address string) (string, string) {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
