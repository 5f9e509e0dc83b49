// common/generator.go
package common

// TokenGenerator derives a replacement string for a source value.
// Implementations keep the length and the per-position character class of the input.
type TokenGenerator interface {
	Mode() string
	GenerateToken(value string) string
}

const (
	ModeRandom = "random"
	ModeKeyed  = "keyed"
)

// CharClass is the substitution class of a single character.
type CharClass int

const (
	ClassOther CharClass = iota
	ClassUpper
	ClassLower
	ClassDigit
)

const (
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz"
	digitAlphabet = "0123456789"
)

// ClassOf classifies r. Only ASCII letters and digits are substituted.
func ClassOf(r rune) CharClass {
	switch {
	case r >= 'A' && r <= 'Z':
		return ClassUpper
	case r >= 'a' && r <= 'z':
		return ClassLower
	case r >= '0' && r <= '9':
		return ClassDigit
	}
	return ClassOther
}

func alphabetFor(c CharClass) string {
	switch c {
	case ClassUpper:
		return upperAlphabet
	case ClassLower:
		return lowerAlphabet
	case ClassDigit:
		return digitAlphabet
	}
	return ""
}

// substitute walks value left to right and replaces every letter/digit with a
// character of the same class picked by pick(n) in [0,n). The same character
// always gets the same replacement within one call.
//
// Work is done on bytes: ASCII letters and digits are single bytes and never
// appear inside a multi-byte UTF-8 sequence, so all other bytes pass through.
func substitute(value string, pick func(n int) int) string {
	if value == "" {
		return ""
	}
	var seen [256]byte
	var mapped [256]bool
	out := make([]byte, len(value))
	for i := 0; i < len(value); i++ {
		b := value[i]
		if mapped[b] {
			out[i] = seen[b]
			continue
		}
		rep := b
		if alpha := alphabetFor(ClassOf(rune(b))); alpha != "" {
			rep = alpha[pick(len(alpha))]
		}
		seen[b], mapped[b] = rep, true
		out[i] = rep
	}
	return string(out)
}
