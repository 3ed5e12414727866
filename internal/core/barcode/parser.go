// Package barcode turns raw decoder payloads into JAN-13 or GTIN-14 codes.
package barcode

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

// Ordered from most to least specific. The bare rule would otherwise match any
// 16-digit run that happens to start with 01.
var gtinRules = []*regexp.Regexp{
	regexp.MustCompile(`\(01\)(\d{14})`),
	regexp.MustCompile(`\]C101(\d{14})`),
	regexp.MustCompile(`01(\d{14})`),
}

// ExtractGTIN14 returns the GTIN-14 carried by a GS1-128 payload, if any.
func ExtractGTIN14(raw string) (string, bool) {
	s := foldWidth(raw)
	for _, rule := range gtinRules {
		if m := rule.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// NormalizeJAN13 strips every non-digit and keeps the result only when exactly
// 13 digits remain. The check digit is not verified.
func NormalizeJAN13(raw string) (string, bool) {
	digits := DigitsOnly(raw)
	if len(digits) != 13 {
		return "", false
	}
	return digits, true
}

// Parse classifies raw as JAN-13 first, then GTIN-14.
func Parse(raw string) domain.NormalizedCode {
	if jan, ok := NormalizeJAN13(raw); ok {
		return domain.NormalizedCode{Kind: domain.CodeJAN13, Value: jan}
	}
	if gtin, ok := ExtractGTIN14(raw); ok {
		return domain.NormalizedCode{Kind: domain.CodeGTIN14, Value: gtin}
	}
	return domain.NormalizedCode{Kind: domain.CodeUnrecognized}
}

// DigitsOnly keeps ASCII digits after folding full-width forms.
func DigitsOnly(s string) string {
	s = foldWidth(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsDigits reports whether s is exactly n ASCII digits.
func IsDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func foldWidth(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return width.Fold.String(s)
		}
	}
	return s
}
