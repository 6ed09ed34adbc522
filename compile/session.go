package compile

import (
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/secrets"
)

// Session holds state shared by every stage compiled in one process:
// the logger, optional run metrics, and the public key handle. The key
// is opened on first use and reused for the rest of the session, so a
// stage with several sensitive arguments parses key material once.
type Session struct {
	log     *logger.Logger
	metrics *observability.Metrics

	keyPath string
	keyring *secrets.Keyring
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches run metrics to the session.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithKeyring injects a keyring opened earlier in the same process.
func WithKeyring(k *secrets.Keyring) Option {
	return func(s *Session) {
		s.keyring = k
	}
}

// NewSession creates a compile session. publicKeyPath may be empty when
// the session will never protect sensitive values.
func NewSession(publicKeyPath string, opts ...Option) *Session {
	s := &Session{
		log:     logger.NewDefault("flowkit"),
		keyPath: publicKeyPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("compile")
	return s
}

// Keyring returns the session key handle, opening it on first call. A
// missing or unparseable public key aborts the compile.
func (s *Session) Keyring() (*secrets.Keyring, error) {
	if s.keyring != nil {
		return s.keyring, nil
	}
	k, err := secrets.OpenKeyring(s.keyPath)
	if err != nil {
		return nil, err
	}
	s.keyring = k
	return k, nil
}
