package secrets

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	apperrors "github.com/kbukum/flowkit/errors"
)

// LoadPublicKey reads and parses a PEM-encoded RSA public key.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Security(fmt.Sprintf("public key %s cannot be read", path), err)
	}
	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, apperrors.Security(fmt.Sprintf("public key %s cannot be parsed", path), err)
	}
	return key, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key in PKIX or PKCS#1 form.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA public key: %T", key)
		}
		return rsaKey, nil
	}

	return x509.ParsePKCS1PublicKey(block.Bytes)
}

// LoadPrivateKey reads and parses a PEM-encoded RSA private key.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Security(fmt.Sprintf("private key %s cannot be read", path), err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, apperrors.Security(fmt.Sprintf("private key %s cannot be parsed", path), err)
	}
	return key, nil
}

// ParsePrivateKey parses a PEM-encoded RSA private key in PKCS#8 or PKCS#1 form.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key: %T", key)
		}
		return rsaKey, nil
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}
