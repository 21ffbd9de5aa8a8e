/*
Package ldapguard wraps a single LDAP connection in a transparent
connection-freshness guard.

Cloud load balancers and NAT devices silently drop TCP connections that
carry no traffic for a while, without notifying either endpoint. A
long-lived LDAP connection behind such infrastructure looks healthy to
the client until the next operation fails in a confusing way. This
package intercepts every use of the connection, measures how long it
has been idle, and applies a policy: serve the existing handle,
transparently replace it with a freshly established one, or reject the
call with a distinguishable error so the caller can re-acquire a
session.

# Architecture

Two components:

  - holder: owns exactly one live *ldap.Conn, tracks the last-access
    timestamp, and applies the idle policy under a mutex.
  - guarded connection: a Conn-shaped forwarding layer; every directory
    operation re-resolves the handle through the holder, so a
    replacement mid-call-sequence is invisible to the caller.

Idleness is evaluated lazily, at the moment of next use. There is no
background timer, keepalive or ping: the guard adds no traffic and no
goroutines.

# Idle policy

With IdleRefresh disabled (the default), an idle-expired connection is
closed and the call fails with a *StaleError carrying the measured idle
age. This cooperates with callers that already have retry-on-disconnect
logic one layer up: the error says "discard this session and acquire a
fresh one" and is distinguishable from ordinary protocol errors. The
very next call on the same guard re-establishes a connection.

With IdleRefresh enabled, the expired connection is closed and replaced
silently; the caller only ever sees its operation succeed or fail.

# Connection establishment

The first connection is established eagerly at construction, because
establishment doubles as credential verification: a wrong bind password
or unreachable server fails New immediately instead of the first
search. Servers come from configured LDAP URLs or from DNS SRV
discovery of a domain; authentication supports simple bind,
GSSAPI/Kerberos and external (client certificate) binds.

Establishment failures are never retried internally. Retry policy
belongs to the caller.

# Example

	cfg := ldapguard.DefaultConfig()
	cfg.LDAPURLs = []string{"ldaps://dc1.example.com:636"}
	cfg.Username = "CN=svc,OU=Accounts,DC=example,DC=com"
	cfg.Password = "secret"
	cfg.IdleTimeout = 3 * time.Minute

	conn, err := ldapguard.New(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Use conn like a *ldap.Conn; idle handling is invisible.
	res, err := conn.Search(ldap.NewSearchRequest(...))

Property-table configuration is available through NewFromProperties for
callers that carry connection parameters as a flat table; the guard's
own keys (ldapguard.idle.timeout, ldapguard.idle.refresh) are stripped
before the table is handed to the connection factory.

# Thread safety

The guard serializes handle resolution internally, but it manages one
logical connection: it is not a pool. Concurrent operations will not
corrupt the holder, yet they share a single underlying connection.
*/
package ldapguard
