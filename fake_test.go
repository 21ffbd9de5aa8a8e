package ldapguard

import (
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeClock is a manually advanced clock for idle-age tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeConn is an in-memory Conn that records calls.
type fakeConn struct {
	id         int
	closeCalls int
	closeErr   error
	opErr      error
	opCalls    int
}

var _ Conn = (*fakeConn)(nil)

func (c *fakeConn) Bind(username, password string) error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) SimpleBind(req *ldap.SimpleBindRequest) (*ldap.SimpleBindResult, error) {
	c.opCalls++
	if c.opErr != nil {
		return nil, c.opErr
	}
	return &ldap.SimpleBindResult{}, nil
}

func (c *fakeConn) UnauthenticatedBind(username string) error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) ExternalBind() error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.opCalls++
	if c.opErr != nil {
		return nil, c.opErr
	}
	return &ldap.SearchResult{}, nil
}

func (c *fakeConn) SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error) {
	c.opCalls++
	if c.opErr != nil {
		return nil, c.opErr
	}
	return &ldap.SearchResult{}, nil
}

func (c *fakeConn) Add(req *ldap.AddRequest) error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) Del(req *ldap.DelRequest) error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) Modify(req *ldap.ModifyRequest) error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) ModifyWithResult(req *ldap.ModifyRequest) (*ldap.ModifyResult, error) {
	c.opCalls++
	if c.opErr != nil {
		return nil, c.opErr
	}
	return &ldap.ModifyResult{}, nil
}

func (c *fakeConn) ModifyDN(req *ldap.ModifyDNRequest) error {
	c.opCalls++
	return c.opErr
}

func (c *fakeConn) Compare(dn, attribute, value string) (bool, error) {
	c.opCalls++
	if c.opErr != nil {
		return false, c.opErr
	}
	return true, nil
}

func (c *fakeConn) PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error) {
	c.opCalls++
	if c.opErr != nil {
		return nil, c.opErr
	}
	return &ldap.PasswordModifyResult{}, nil
}

func (c *fakeConn) WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error) {
	c.opCalls++
	if c.opErr != nil {
		return nil, c.opErr
	}
	return &ldap.WhoAmIResult{AuthzID: "u:tester"}, nil
}

func (c *fakeConn) Close() error {
	c.closeCalls++
	return c.closeErr
}

// fakeFactory hands out numbered fakeConns and records every dial.
type fakeFactory struct {
	dials    int
	dialErr  error
	closeErr error // applied to the next handed-out conn
	conns    []*fakeConn
}

var _ Factory = (*fakeFactory)(nil)

func (f *fakeFactory) New() (Conn, error) {
	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	conn := &fakeConn{id: f.dials, closeErr: f.closeErr}
	f.conns = append(f.conns, conn)
	return conn, nil
}

// newTestHolder builds a holder on a fake factory and pins its clock.
func newTestHolder(t *testing.T, factory *fakeFactory, idleTimeout time.Duration, idleRefresh bool) (*holder, *fakeClock) {
	t.Helper()

	h, err := newHolder(factory, idleTimeout, idleRefresh, testLogger(), NoopCollector())
	if err != nil {
		t.Fatalf("newHolder() failed: %v", err)
	}

	clock := newFakeClock()
	h.now = clock.Now
	h.lastAccess = clock.Now()
	return h, clock
}
