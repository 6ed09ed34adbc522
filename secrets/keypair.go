package secrets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Key file names inside a run's job directory.
const (
	PrivateKeyFile = "private.pem"
	PublicKeyFile  = "public.pem"
)

// DefaultKeyBits is the RSA modulus size for generated key pairs.
const DefaultKeyBits = 2048

// GenerateKeyPair writes a fresh RSA key pair into dir and returns the
// private and public key paths. The private key never leaves dir; tasks
// that protect values only ever receive the public half.
func GenerateKeyPair(dir string, bits int) (string, string, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", apperrors.Security("key pair generation failed", err)
	}

	privPath := filepath.Join(dir, PrivateKeyFile)
	pubPath := filepath.Join(dir, PublicKeyFile)

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", apperrors.Security("private key encoding failed", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return "", "", apperrors.Security(fmt.Sprintf("write private key %s", privPath), err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", apperrors.Security("public key encoding failed", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return "", "", apperrors.Security(fmt.Sprintf("write public key %s", pubPath), err)
	}

	return privPath, pubPath, nil
}
