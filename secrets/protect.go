package secrets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Protect encrypts each value independently under the public key and
// returns name → base64 ciphertext. RSA-OAEP with SHA-256 is used for
// both the hash and the mask generation function. A nil or empty input
// returns nil.
func Protect(pub *rsa.PublicKey, args map[string]string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	protected := make(map[string]string, len(args))
	for name, value := range args {
		ciphertext, err := ProtectValue(pub, value)
		if err != nil {
			return nil, apperrors.Security(fmt.Sprintf("value for %s cannot be protected", name), err)
		}
		protected[name] = ciphertext
	}
	return protected, nil
}

// ProtectValue encrypts one value and returns base64 ciphertext.
func ProtectValue(pub *rsa.PublicKey, value string) (string, error) {
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(value), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Unprotect reverses Protect with the matching private key.
func Unprotect(priv *rsa.PrivateKey, protected map[string]string) (map[string]string, error) {
	if len(protected) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(protected))
	for name, ciphertext := range protected {
		value, err := UnprotectValue(priv, ciphertext)
		if err != nil {
			return nil, apperrors.Security(fmt.Sprintf("value for %s cannot be unprotected", name), err)
		}
		args[name] = value
	}
	return args, nil
}

// UnprotectValue decrypts one base64 ciphertext back to its plaintext.
func UnprotectValue(priv *rsa.PrivateKey, ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, data, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
