package ldapguard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Factory establishes new connection handles. It is consulted once at
// guard construction and again at every idle refresh, with identical
// parameters each time. Implementations must not retry internally;
// the first establishment failure propagates to the caller.
type Factory interface {
	New() (Conn, error)
}

// dialFactory is the production factory. It resolves servers once at
// construction (from configured URLs, or SRV discovery when only a
// domain is given), then dials and authenticates a fresh *ldap.Conn on
// every New call.
type dialFactory struct {
	cfg     *Config
	servers []*ServerInfo
	logger  zerolog.Logger
}

// newDialFactory resolves the server list and returns a ready factory.
// Resolution failures surface here so a misconfigured URL or an
// undiscoverable domain is reported before the first dial.
func newDialFactory(cfg *Config, logger zerolog.Logger) (*dialFactory, error) {
	var servers []*ServerInfo

	if len(cfg.LDAPURLs) > 0 {
		for _, url := range cfg.LDAPURLs {
			server, err := ParseLDAPURL(url)
			if err != nil {
				return nil, fmt.Errorf("invalid LDAP URL %s: %w", url, err)
			}
			servers = append(servers, server)
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		discovered, err := newSRVDiscovery(logger).discoverServers(ctx, cfg.Domain)
		if err != nil {
			return nil, fmt.Errorf("server discovery failed: %w", err)
		}
		servers = discovered
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers resolved")
	}

	return &dialFactory{
		cfg:     cfg,
		servers: servers,
		logger:  logger,
	}, nil
}

// New dials the resolved servers in preference order and returns the
// first handle that connects and authenticates. There is no backoff
// loop: one pass over the server list, then failure.
func (f *dialFactory) New() (Conn, error) {
	var lastErr error

	for _, server := range f.servers {
		conn, err := f.dial(server)
		if err != nil {
			lastErr = err
			f.logger.Debug().
				Str("server", ServerInfoToURL(server)).
				Err(err).
				Msg("connection attempt failed")
			continue
		}
		return conn, nil
	}

	return nil, NewConnError("failed to establish ldap connection", lastErr)
}

// dial connects to a single server and authenticates per the
// configuration. Connection establishment doubles as credential
// verification, so a bind failure tears the socket down and surfaces
// immediately.
func (f *dialFactory) dial(server *ServerInfo) (*ldap.Conn, error) {
	start := time.Now()
	url := ServerInfoToURL(server)

	tlsConfig, err := prepareTLSConfig(f.cfg, server.Host)
	if err != nil {
		return nil, err
	}

	var conn *ldap.Conn
	if server.UseTLS {
		// Direct TLS connection (LDAPS)
		conn, err = ldap.DialURL(url, ldap.DialWithTLSConfig(tlsConfig))
	} else {
		// Plain connection, upgraded via StartTLS unless TLS is off
		conn, err = ldap.DialURL(url)
		if err == nil && f.cfg.UseTLS && !f.cfg.SkipTLS {
			err = conn.StartTLS(tlsConfig)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetTimeout(f.cfg.Timeout)

	if f.cfg.HasAuthentication() {
		if err := f.authenticate(conn, server); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to authenticate connection to %s: %w", url, err)
		}
	}

	f.logger.Debug().
		Str("server", url).
		Str("conn_id", uuid.NewString()).
		Str("auth_method", f.cfg.GetAuthMethod().String()).
		Dur("duration", time.Since(start)).
		Msg("ldap connection established")

	return conn, nil
}

// authenticate binds a freshly dialed connection using the configured method.
func (f *dialFactory) authenticate(conn *ldap.Conn, server *ServerInfo) error {
	switch method := f.cfg.GetAuthMethod(); method {
	case AuthMethodSimpleBind:
		if f.cfg.Username == "" {
			return fmt.Errorf("username is required for simple bind authentication")
		}
		return conn.Bind(f.cfg.Username, f.cfg.Password)
	case AuthMethodKerberos:
		return performKerberosAuth(conn, f.cfg, server)
	case AuthMethodExternal:
		return conn.ExternalBind()
	default:
		return fmt.Errorf("unsupported authentication method: %s", method.String())
	}
}
