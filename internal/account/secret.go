package account

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretHasher decides how secrets are stored and compared.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Matches(stored, secret string) bool
}

// Secret hashing modes accepted by configuration.
const (
	SecretsPlain  = "plain"
	SecretsBcrypt = "bcrypt"
)

// PlainSecrets stores secrets verbatim and compares them exactly.
// This is the web client's historical contract; prefer BcryptSecrets for real users.
type PlainSecrets struct{}

func (PlainSecrets) Hash(secret string) (string, error) { return secret, nil }

func (PlainSecrets) Matches(stored, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}

// BcryptSecrets stores salted bcrypt hashes. Records written under PlainSecrets will not match.
type BcryptSecrets struct {
	Cost int
}

func (b BcryptSecrets) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hashed), nil
}

func (BcryptSecrets) Matches(stored, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
}

// SecretHasherFor maps a configuration value to a hasher.
func SecretHasherFor(mode string) (SecretHasher, error) {
	switch mode {
	case "", SecretsPlain:
		return PlainSecrets{}, nil
	case SecretsBcrypt:
		return BcryptSecrets{}, nil
	default:
		return nil, fmt.Errorf("unsupported secret hashing mode: %s", mode)
	}
}
