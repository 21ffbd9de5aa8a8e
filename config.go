package ldapguard

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
)

// Config holds the connection parameters for the guarded LDAP
// connection. Everything except IdleTimeout and IdleRefresh is passed
// through to the connection factory; the two idle knobs belong to the
// guard itself.
type Config struct {
	// Connection settings
	Domain   string   // Domain for SRV discovery
	LDAPURLs []string // Direct LDAP URLs (override domain discovery)
	BaseDN   string   // Base DN for searches

	// Timeout is the per-operation timeout applied to the handle.
	Timeout time.Duration `default:"30s"`

	// IdleTimeout is how long the connection stays usable since the
	// last access. Connections idle longer than this are considered
	// possibly dead by intermediate network infrastructure.
	IdleTimeout time.Duration `default:"10m"`

	// IdleRefresh selects the policy when IdleTimeout is exceeded:
	// true reconnects silently, false fails with a StaleError so the
	// caller's own retry layer can re-acquire a fresh connection.
	IdleRefresh bool `default:"false"`

	// Authentication settings
	Username       string // DN, UPN, or SAM format
	Password       string
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosCCache string // Path to Kerberos credential cache
	KerberosConfig string // Path to krb5.conf
	KerberosSPN    string // Explicit service principal override

	// TLS settings
	TLSConfig         *tls.Config
	UseTLS            bool `default:"true"`
	SkipTLS           bool // Skip TLS entirely (not recommended)
	TLSCACertFile     string
	TLSCACert         string // CA certificate content (PEM)
	TLSClientCertFile string
	TLSClientKeyFile  string
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.MustSet(cfg)
	cfg.TLSConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		// Certificate validation enabled by default
		InsecureSkipVerify: false,
	}
	return cfg
}

// validateConfig validates the guard configuration.
func validateConfig(cfg *Config) error {
	if len(cfg.LDAPURLs) == 0 && cfg.Domain == "" {
		return errors.New("either domain or LDAP URLs must be specified")
	}

	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if cfg.IdleTimeout <= 0 {
		return errors.New("IdleTimeout must be positive")
	}

	return nil
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // External/certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *Config) GetAuthMethod() AuthMethod {
	// Kerberos authentication takes precedence
	if c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.Username != "") {
		return AuthMethodKerberos
	}

	if c.Username != "" && c.Password != "" {
		return AuthMethodSimpleBind
	}

	if c.TLSClientCertFile != "" && c.TLSClientKeyFile != "" {
		return AuthMethodExternal
	}

	return AuthMethodSimpleBind
}

// HasAuthentication checks if any authentication method is configured.
func (c *Config) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.Username != "")
	hasExternal := c.TLSClientCertFile != "" && c.TLSClientKeyFile != ""

	return hasPassword || hasKerberos || hasExternal
}

// buildCertPool constructs the certificate pool used for server
// verification. A custom CA can be supplied as a file path or inline
// PEM content; without one the system pool is used.
func buildCertPool(caCertFile, caCert string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}

	pem := []byte(caCert)
	if caCertFile != "" {
		pem, err = os.ReadFile(caCertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %s: %w", caCertFile, err)
		}
	}

	if len(pem) > 0 {
		if ok := pool.AppendCertsFromPEM(pem); !ok {
			return nil, errors.New("invalid PEM format in CA certificate")
		}
	}

	return pool, nil
}

// prepareTLSConfig finalizes the TLS configuration for a specific
// server host, cloning the configured template so the caller's config
// is never mutated.
func prepareTLSConfig(cfg *Config, host string) (*tls.Config, error) {
	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tlsConfig = tlsConfig.Clone()

	if cfg.TLSCACertFile != "" || cfg.TLSCACert != "" {
		pool, err := buildCertPool(cfg.TLSCACertFile, cfg.TLSCACert)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.TLSClientCertFile != "" && cfg.TLSClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = append(tlsConfig.Certificates, cert)
	}

	if !tlsConfig.InsecureSkipVerify {
		tlsConfig.ServerName = host
	}

	return tlsConfig, nil
}
