package ldapguard

import (
	"strconv"
	"strings"
	"time"
)

// Properties is a flat property table describing a guarded connection.
// It mirrors the environment-table style of configuration used by
// directory clients: every entry is a connection parameter except for
// the guard's own control keys, which are consumed (and stripped)
// before the table reaches the connection factory.
type Properties map[string]string

// Guard control keys. These are not valid connection parameters and
// never reach the factory.
const (
	// PropIdleTimeout holds the idle timeout in milliseconds.
	PropIdleTimeout = "ldapguard.idle.timeout"

	// PropIdleRefresh selects silent reconnection ("true") or stale
	// failure ("false") when the idle timeout is exceeded.
	PropIdleRefresh = "ldapguard.idle.refresh"

	// PropFactory selects the connection factory. The guard pins it to
	// DialFactoryID during sanitization so a table that was pointed at
	// the guard cannot recursively select the guard again.
	PropFactory = "ldapguard.factory"
)

// DialFactoryID is the identifier of the underlying dial factory.
const DialFactoryID = "dial"

// Connection parameter keys.
const (
	PropURLs           = "ldap.urls" // space-separated LDAP URLs
	PropDomain         = "ldap.domain"
	PropBaseDN         = "ldap.base_dn"
	PropUsername       = "ldap.username"
	PropPassword       = "ldap.password"
	PropTimeout        = "ldap.timeout" // milliseconds
	PropUseTLS         = "ldap.use_tls"
	PropKerberosRealm  = "ldap.kerberos.realm"
	PropKerberosKeytab = "ldap.kerberos.keytab"
	PropKerberosCCache = "ldap.kerberos.ccache"
	PropKerberosConfig = "ldap.kerberos.config"
	PropKerberosSPN    = "ldap.kerberos.spn"
	PropTLSCACertFile  = "ldap.tls.ca_cert_file"
	PropTLSCACert      = "ldap.tls.ca_cert"
	PropTLSClientCert  = "ldap.tls.client_cert_file"
	PropTLSClientKey   = "ldap.tls.client_key_file"
)

// idleTimeout extracts the idle timeout from the table, defaulting to
// 10 minutes. Unparseable values fall back to the default.
func (p Properties) idleTimeout() time.Duration {
	str, ok := p[PropIdleTimeout]
	if !ok {
		str = "600000" // 10 minutes
	}
	ms, err := strconv.ParseInt(str, 10, 64)
	if err != nil || ms <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(ms) * time.Millisecond
}

// idleRefresh extracts the refresh policy from the table. The default
// is false: idle expiry surfaces as a StaleError rather than being
// healed silently.
func (p Properties) idleRefresh() bool {
	str, ok := p[PropIdleRefresh]
	if !ok {
		str = "false"
	}
	refresh, err := strconv.ParseBool(str)
	if err != nil {
		return false
	}
	return refresh
}

// sanitize returns a copy of the table suitable for the connection
// factory: the idle control keys are stripped, and the factory key, if
// present, is overwritten with the fixed dial factory identifier.
func (p Properties) sanitize() Properties {
	sanitized := make(Properties, len(p))
	for k, v := range p {
		switch k {
		case PropIdleTimeout, PropIdleRefresh:
			continue
		case PropFactory:
			sanitized[PropFactory] = DialFactoryID
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

// toConfig converts a sanitized property table into a typed Config.
// Unknown keys are ignored; they may be meaningful to a custom factory.
func (p Properties) toConfig() *Config {
	cfg := DefaultConfig()

	if urls, ok := p[PropURLs]; ok {
		cfg.LDAPURLs = strings.Fields(urls)
	}
	cfg.Domain = p[PropDomain]
	cfg.BaseDN = p[PropBaseDN]
	cfg.Username = p[PropUsername]
	cfg.Password = p[PropPassword]
	cfg.KerberosRealm = p[PropKerberosRealm]
	cfg.KerberosKeytab = p[PropKerberosKeytab]
	cfg.KerberosCCache = p[PropKerberosCCache]
	cfg.KerberosConfig = p[PropKerberosConfig]
	cfg.KerberosSPN = p[PropKerberosSPN]
	cfg.TLSCACertFile = p[PropTLSCACertFile]
	cfg.TLSCACert = p[PropTLSCACert]
	cfg.TLSClientCertFile = p[PropTLSClientCert]
	cfg.TLSClientKeyFile = p[PropTLSClientKey]

	if str, ok := p[PropTimeout]; ok {
		if ms, err := strconv.ParseInt(str, 10, 64); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if str, ok := p[PropUseTLS]; ok {
		if useTLS, err := strconv.ParseBool(str); err == nil {
			cfg.UseTLS = useTLS
		}
	}

	return cfg
}
