package secrets

import (
	"crypto/rsa"

	"golang.org/x/crypto/ssh"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Keyring is a key handle scoped to one compile session. The public key
// is loaded and parsed once when the keyring is opened; every protect
// call reuses it instead of re-reading key material from disk.
type Keyring struct {
	pub  *rsa.PublicKey
	path string
}

// OpenKeyring loads the public key at path. A missing or unparseable key
// is a security error that aborts the compile.
func OpenKeyring(path string) (*Keyring, error) {
	pub, err := LoadPublicKey(path)
	if err != nil {
		return nil, err
	}
	return &Keyring{pub: pub, path: path}, nil
}

// Path returns the public key location the keyring was opened from.
func (k *Keyring) Path() string {
	return k.path
}

// PublicKey returns the loaded public key.
func (k *Keyring) PublicKey() *rsa.PublicKey {
	return k.pub
}

// Protect encrypts each value under the session's public key.
func (k *Keyring) Protect(args map[string]string) (map[string]string, error) {
	return Protect(k.pub, args)
}

// ProtectValue encrypts a single value under the session's public key.
func (k *Keyring) ProtectValue(value string) (string, error) {
	return ProtectValue(k.pub, value)
}

// Fingerprint returns the SHA-256 fingerprint of the public key in
// OpenSSH form (SHA256:...).
func (k *Keyring) Fingerprint() (string, error) {
	sshPub, err := ssh.NewPublicKey(k.pub)
	if err != nil {
		return "", apperrors.Security("public key fingerprint failed", err)
	}
	return ssh.FingerprintSHA256(sshPub), nil
}
