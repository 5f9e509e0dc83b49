// common/pii_spec.go
package common

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// PiiSpec describes how to recognise one kind of personal identifier in a cell.
type PiiSpec struct {
	TypeName string
	Pattern  *regexp.Regexp
	// Preprocess normalizes a raw cell before matching; nil means TrimSpace.
	Preprocess func(string) string
}

var (
	ErrSpecMissing = errors.New("pii spec missing")
	piiRegistry    = map[string]PiiSpec{}
)

// RegisterSpec registers or overwrites a PII spec.
func RegisterSpec(spec PiiSpec) {
	piiRegistry[strings.ToUpper(spec.TypeName)] = spec
}

// GetSpec returns the registered spec by type name (case-insensitive).
func GetSpec(typeName string) (PiiSpec, error) {
	if spec, ok := piiRegistry[strings.ToUpper(typeName)]; ok {
		return spec, nil
	}
	return PiiSpec{}, ErrSpecMissing
}

// Specs returns all registered specs ordered by type name.
func Specs() []PiiSpec {
	out := make([]PiiSpec, 0, len(piiRegistry))
	for _, s := range piiRegistry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}

// Matches reports whether value looks like an identifier of this kind.
func (s PiiSpec) Matches(value string) bool {
	if s.Preprocess != nil {
		value = s.Preprocess(value)
	} else {
		value = strings.TrimSpace(value)
	}
	return value != "" && s.Pattern.MatchString(value)
}
