package app

import (
	"net/mail"
	"os"
	"strconv"
	"strings"
	"unicode"
)

const (
	defaultMinPasswordLength = 8
	defaultMaxPasswordLength = 50
	defaultMinPasswordDigits = 1
)

// Internal violation codes. These never cross the HTTP boundary: callers
// log them and return the undifferentiated ErrInvalidUserData code.
const (
	violationTooShort   = "password_too_short"
	violationTooLong    = "password_too_long"
	violationNoUpper    = "password_no_uppercase"
	violationNoLower    = "password_no_lowercase"
	violationFewDigits  = "password_not_enough_digits"
	violationWhitespace = "password_contains_whitespace"
)

// PolicyViolation reports which password rule failed.
type PolicyViolation struct {
	Code    string
	Message string
}

func (e *PolicyViolation) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordPolicy is the configurable password-strength rule set.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
	MinDigits int
}

// PolicyFromEnv builds a PasswordPolicy from PASSWORD_MIN_LENGTH,
// PASSWORD_MAX_LENGTH and PASSWORD_MIN_DIGITS, with defaults 8/50/1.
func PolicyFromEnv() PasswordPolicy {
	return PasswordPolicy{
		MinLength: envInt("PASSWORD_MIN_LENGTH", defaultMinPasswordLength),
		MaxLength: envInt("PASSWORD_MAX_LENGTH", defaultMaxPasswordLength),
		MinDigits: envInt("PASSWORD_MIN_DIGITS", defaultMinPasswordDigits),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// Validate applies the rules in order and returns the first violation:
// min length, max length, uppercase, lowercase, digit count, whitespace.
// Both length bounds are inclusive; the empty string fails the first rule.
func (p PasswordPolicy) Validate(password string) *PolicyViolation {
	runes := []rune(password)

	if len(runes) < p.MinLength {
		return &PolicyViolation{Code: violationTooShort, Message: "password is too short"}
	}
	if len(runes) > p.MaxLength {
		return &PolicyViolation{Code: violationTooLong, Message: "password is too long"}
	}

	var (
		hasUpper      bool
		hasLower      bool
		digits        int
		hasWhitespace bool
	)

	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			digits++
		case unicode.IsSpace(r):
			hasWhitespace = true
		}
	}

	if !hasUpper {
		return &PolicyViolation{Code: violationNoUpper, Message: "password must contain an uppercase letter"}
	}
	if !hasLower {
		return &PolicyViolation{Code: violationNoLower, Message: "password must contain a lowercase letter"}
	}
	if digits < p.MinDigits {
		return &PolicyViolation{Code: violationFewDigits, Message: "password does not contain enough digits"}
	}
	if hasWhitespace {
		return &PolicyViolation{Code: violationWhitespace, Message: "password must not contain whitespace"}
	}

	return nil
}

// validEmail applies a conservative RFC 5322 subset: exactly one @, a
// non-empty local part, a domain with at least one dot and a non-empty
// top-level segment, and no whitespace anywhere.
func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}

	at := strings.Index(email, "@")
	local, domain := email[:at], email[at+1:]
	if local == "" || domain == "" {
		return false
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}

	return true
}
