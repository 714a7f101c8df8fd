package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var ErrInvalidApiKey = errors.New("invalid api key")

// AuthService checks the X-API-Key presented by the host. Only the hash of the
// configured key is kept in memory.
type AuthService struct {
	keyHash []byte
}

func NewAuthService(apiKey string) *AuthService {
	if apiKey == "" {
		return &AuthService{}
	}
	return &AuthService{keyHash: hashKey(apiKey)}
}

// Enabled reports whether a key is configured. Without one every request is
// accepted.
func (s *AuthService) Enabled() bool {
	return len(s.keyHash) > 0
}

func (s *AuthService) VerifyApiKey(plainKey string) error {
	if !s.Enabled() {
		return nil
	}
	if plainKey == "" || subtle.ConstantTimeCompare(hashKey(plainKey), s.keyHash) != 1 {
		return ErrInvalidApiKey
	}
	return nil
}

// KeyPrefix returns the first characters of the key hash, safe to log.
func (s *AuthService) KeyPrefix() string {
	if !s.Enabled() {
		return ""
	}
	return hex.EncodeToString(s.keyHash)[:8]
}

func hashKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}
