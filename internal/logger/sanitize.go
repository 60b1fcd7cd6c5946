package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxUserIDLength caps user ids in logs
	MaxUserIDLength = 128
	// MaxContentLength caps message text in logs
	MaxContentLength = 500
)

// SanitizeString drops control characters, repairs UTF-8 and truncates to
// maxLength runes
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			return r
		}
		if r == '\n' || r == '\r' {
			return ' '
		}
		return -1
	}, s)
	return Truncate(s, maxLength)
}

// SanitizeUserID sanitizes a user id for logging
func SanitizeUserID(userID string) string {
	return SanitizeString(userID, MaxUserIDLength)
}

// SanitizeContent sanitizes message text for logging
func SanitizeContent(content string) string {
	return SanitizeString(content, MaxContentLength)
}

// Truncate shortens s to at most n runes, marking the cut with "..."
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
