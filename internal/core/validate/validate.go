// Package validate holds the pure input checks used by the storefront client.
//
// The SQL injection and XSS detectors are heuristics carried over from the
// storefront's browser client. They reject some legitimate text and miss
// obfuscated payloads. Do not treat them as a security boundary.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/digitalplanet/shopclient/internal/core"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
	UsernameMinLength = 3
	UsernameMaxLength = 20
	EmailMaxLength    = 255
	AmountMax         = 999999.99
	PasswordSymbols   = "@$!%*?&"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^1[3-9]\d{9}$`)
	amountPattern = regexp.MustCompile(`^(\d+(\.\d{1,2})?|\.\d{1,2})$`)
)

// Email checks the local@domain.tld shape.
func Email(value string) core.ValidationResult {
	if value == "" {
		return core.Invalid("email is required")
	}
	if utf8.RuneCountInString(value) > EmailMaxLength {
		return core.Invalid("email must be at most 255 characters")
	}
	if !emailPattern.MatchString(value) {
		return core.Invalid("email format is invalid")
	}
	return core.Valid()
}

// Password reports the first failing rule in the order
// length, lowercase, uppercase, digit, symbol. Lengths count characters.
func Password(value string) core.ValidationResult {
	length := utf8.RuneCountInString(value)
	if length < PasswordMinLength {
		return core.Invalid("password must be at least 8 characters")
	}
	if !strings.ContainsFunc(value, isASCIILower) {
		return core.Invalid("password must contain a lowercase letter")
	}
	if !strings.ContainsFunc(value, isASCIIUpper) {
		return core.Invalid("password must contain an uppercase letter")
	}
	if !strings.ContainsFunc(value, isASCIIDigit) {
		return core.Invalid("password must contain a digit")
	}
	if !strings.ContainsAny(value, PasswordSymbols) {
		return core.Invalid("password must contain a special character (@$!%*?&)")
	}
	if length > PasswordMaxLength {
		return core.Invalid("password must be at most 128 characters")
	}
	return core.Valid()
}

// Username allows 3-20 ASCII letters, digits, underscores and CJK ideographs.
func Username(value string) core.ValidationResult {
	length := utf8.RuneCountInString(value)
	if length < UsernameMinLength || length > UsernameMaxLength {
		return core.Invalid("username must be 3-20 characters")
	}
	for _, r := range value {
		if !isUsernameRune(r) {
			return core.Invalid("username may only contain letters, digits, underscores and Chinese characters")
		}
	}
	return core.Valid()
}

// Amount checks a currency amount with at most two decimals in (0, 999999.99].
func Amount(value string) core.ValidationResult {
	trimmed := strings.TrimSpace(value)
	if !amountPattern.MatchString(trimmed) {
		return core.Invalid("amount must be a number with at most two decimal places")
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return core.Invalid("amount must be a number with at most two decimal places")
	}
	if parsed <= 0 {
		return core.Invalid("amount must be greater than 0")
	}
	if parsed > AmountMax {
		return core.Invalid("amount must not exceed 999999.99")
	}
	return core.Valid()
}

// Phone checks an 11-digit mainland China mobile number.
func Phone(value string) core.ValidationResult {
	if !phonePattern.MatchString(value) {
		return core.Invalid("phone number format is invalid")
	}
	return core.Valid()
}

var htmlReplacer = []struct{ from, to string }{
	{"&", "&amp;"},
	{"<", "&lt;"},
	{">", "&gt;"},
	{`"`, "&quot;"},
	{"'", "&#x27;"},
	{"/", "&#x2F;"},
}

// SanitizeHTML escapes & < > " ' / in that order.
func SanitizeHTML(value string) string {
	for _, r := range htmlReplacer {
		value = strings.ReplaceAll(value, r.from, r.to)
	}
	return value
}

func isUsernameRune(r rune) bool {
	switch {
	case r == '_':
		return true
	case r < utf8.RuneSelf:
		return isASCIILower(r) || isASCIIUpper(r) || isASCIIDigit(r)
	default:
		return r >= 0x4E00 && r <= 0x9FA5
	}
}

func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
