// common/generator_factory.go
package common

import (
	"fmt"
	"strings"
)

// GeneratorConfig selects and parameterizes a TokenGenerator.
type GeneratorConfig struct {
	// Mode is "random" (default) or "keyed".
	Mode string
	// KeyBase64 is required in keyed mode.
	KeyBase64 string
	// Seed makes random mode reproducible when HasSeed is set.
	Seed    uint64
	HasSeed bool
}

// NewTokenGenerator builds a TokenGenerator for cfg.
func NewTokenGenerator(cfg GeneratorConfig) (TokenGenerator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeRandom
	}
	switch mode {
	case ModeRandom:
		if cfg.HasSeed {
			return NewSeededRandomGenerator(cfg.Seed), nil
		}
		return NewRandomGenerator(), nil
	case ModeKeyed:
		if cfg.KeyBase64 == "" {
			return nil, fmt.Errorf("TOKEN_MODE=keyed but TOKEN_KEY_BASE64 not set")
		}
		key, err := DecodeBase64Key(cfg.KeyBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_KEY_BASE64: %w", err)
		}
		return NewKeyedGenerator(key)
	default:
		return nil, fmt.Errorf("unsupported TOKEN_MODE: %s", cfg.Mode)
	}
}
