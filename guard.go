package ldapguard

import (
	"github.com/go-ldap/ldap/v3"
)

// Conn is the directory operation set exposed by the guard. It covers
// the subset of *ldap.Conn that callers issue against a logical
// connection, plus Close. *ldap.Conn satisfies it, so the same
// interface describes both the raw handle and the guarded one.
//
// Unbind is deliberately absent: it is a teardown operation at the
// protocol level, and the guard's teardown surface is Close.
type Conn interface {
	// Authentication
	Bind(username, password string) error
	SimpleBind(req *ldap.SimpleBindRequest) (*ldap.SimpleBindResult, error)
	UnauthenticatedBind(username string) error
	ExternalBind() error

	// Directory operations
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Del(req *ldap.DelRequest) error
	Modify(req *ldap.ModifyRequest) error
	ModifyWithResult(req *ldap.ModifyRequest) (*ldap.ModifyResult, error)
	ModifyDN(req *ldap.ModifyDNRequest) error
	Compare(dn, attribute, value string) (bool, error)
	PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error)
	WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error)

	// Close tears down the connection. On the guard this destroys the
	// holder; it is not forwarded as a raw protocol operation.
	Close() error
}

// guardedConn is the transparent forwarding layer. Every operation
// re-resolves the live handle through the holder rather than operating
// on a handle captured once, which is what makes handle replacement
// invisible to the caller. It holds no state beyond the holder
// reference.
//
// Errors from forwarded operations are returned exactly as the handle
// produced them, never wrapped, so caller-side error matching (for
// example ldap.IsErrorWithCode) keeps working across a replacement.
type guardedConn struct {
	holder *holder
}

var _ Conn = (*guardedConn)(nil)

func (g *guardedConn) Bind(username, password string) error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.Bind(username, password)
}

func (g *guardedConn) SimpleBind(req *ldap.SimpleBindRequest) (*ldap.SimpleBindResult, error) {
	conn, err := g.holder.get()
	if err != nil {
		return nil, err
	}
	return conn.SimpleBind(req)
}

func (g *guardedConn) UnauthenticatedBind(username string) error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.UnauthenticatedBind(username)
}

func (g *guardedConn) ExternalBind() error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.ExternalBind()
}

func (g *guardedConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	conn, err := g.holder.get()
	if err != nil {
		return nil, err
	}
	return conn.Search(req)
}

func (g *guardedConn) SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error) {
	conn, err := g.holder.get()
	if err != nil {
		return nil, err
	}
	return conn.SearchWithPaging(req, pagingSize)
}

func (g *guardedConn) Add(req *ldap.AddRequest) error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.Add(req)
}

func (g *guardedConn) Del(req *ldap.DelRequest) error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.Del(req)
}

func (g *guardedConn) Modify(req *ldap.ModifyRequest) error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.Modify(req)
}

func (g *guardedConn) ModifyWithResult(req *ldap.ModifyRequest) (*ldap.ModifyResult, error) {
	conn, err := g.holder.get()
	if err != nil {
		return nil, err
	}
	return conn.ModifyWithResult(req)
}

func (g *guardedConn) ModifyDN(req *ldap.ModifyDNRequest) error {
	conn, err := g.holder.get()
	if err != nil {
		return err
	}
	return conn.ModifyDN(req)
}

func (g *guardedConn) Compare(dn, attribute, value string) (bool, error) {
	conn, err := g.holder.get()
	if err != nil {
		return false, err
	}
	return conn.Compare(dn, attribute, value)
}

func (g *guardedConn) PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error) {
	conn, err := g.holder.get()
	if err != nil {
		return nil, err
	}
	return conn.PasswordModify(req)
}

func (g *guardedConn) WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error) {
	conn, err := g.holder.get()
	if err != nil {
		return nil, err
	}
	return conn.WhoAmI(controls)
}

func (g *guardedConn) Close() error {
	return g.holder.close()
}
