package common

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	godotenv.Load()
}

// MaybeEnv returns environment value or empty string (non-panicking)
func MaybeEnv(key string) string {
	return os.Getenv(key)
}

// DecodeBase64Key decodes a base64-encoded key string
func DecodeBase64Key(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// hmacSHA256 computes HMAC-SHA256(key, value).
func hmacSHA256(key []byte, value string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return mac.Sum(nil)
}
