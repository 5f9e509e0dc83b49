// common/preset_specs.go
package common

import (
	"regexp"
	"strings"
)

func init() {
	// PAN: 5 letters, 4 digits, 1 letter
	RegisterSpec(PiiSpec{
		TypeName: "PAN",
		Pattern:  regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`),
		Preprocess: func(s string) string {
			return strings.ToUpper(strings.TrimSpace(s))
		},
	})

	// AADHAR: 12 digits, optionally grouped by spaces
	RegisterSpec(PiiSpec{
		TypeName: "AADHAR",
		Pattern:  regexp.MustCompile(`^[0-9]{12}$`),
		Preprocess: func(s string) string {
			return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
		},
	})

	// MOBILE: 10-digit Indian mobile, +91 prefix allowed
	RegisterSpec(PiiSpec{
		TypeName: "MOBILE",
		Pattern:  regexp.MustCompile(`^[6-9][0-9]{9}$`),
		Preprocess: func(s string) string {
			s = strings.TrimSpace(s)
			s = strings.TrimPrefix(s, "+91")
			s = strings.ReplaceAll(s, " ", "")
			return strings.ReplaceAll(s, "-", "")
		},
	})

	RegisterSpec(PiiSpec{
		TypeName: "EMAIL",
		Pattern:  regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`),
	})

	// DL: state code, 2 digit RTO, 11 more digits
	RegisterSpec(PiiSpec{
		TypeName: "DL",
		Pattern:  regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[0-9]{4}[0-9]{7}$`),
		Preprocess: func(s string) string {
			s = strings.ToUpper(strings.TrimSpace(s))
			s = strings.ReplaceAll(s, " ", "")
			return strings.ReplaceAll(s, "-", "")
		},
	})
}
