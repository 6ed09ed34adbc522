// Package secrets protects sensitive workflow arguments with RSA-OAEP.
//
// A key pair is generated per run; plugin tasks receive only the public
// half and protect values before they cross the submission boundary. The
// private key stays in the run's job directory for the executing side.
//
//	keyring, err := secrets.OpenKeyring(pubPath)
//	protected, err := keyring.Protect(map[string]string{"password": pw})
package secrets
