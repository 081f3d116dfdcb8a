package liveclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/rohitkatta517/azdevcache/internal/errs"
)

// DialFunc establishes one authenticated Connection to orgURI on behalf
// of account. Implementations own retry/backoff for the underlying
// transport; Pool only owns caching and lifecycle.
type DialFunc func(ctx context.Context, orgURI string, account Account) (Connection, error)

type poolKey struct {
	orgURI  string
	account string
}

// Pool is a ConnectionProvider that caches one Connection per
// (organization, account) pair, dialing lazily and reusing the result
// across every Updater and repository call that targets the same
// organization under the same signed-in identity.
type Pool struct {
	dial DialFunc

	mu    sync.Mutex
	conns map[poolKey]Connection
}

// NewPool constructs a Pool that dials new connections with dial.
func NewPool(dial DialFunc) *Pool {
	return &Pool{dial: dial, conns: make(map[poolKey]Connection)}
}

// GetConnection returns the cached connection for (orgURI, account),
// dialing and caching one if this is the first request for that pair.
// The lock is not held while dialing: concurrent first requests for the
// same pair may each dial, and all of them get the connection stored
// first; the other dialed connections are discarded.
func (p *Pool) GetConnection(ctx context.Context, orgURI string, account Account) (Connection, error) {
	if orgURI == "" {
		return nil, errs.Validation("empty organization uri", nil)
	}
	key := poolKey{orgURI: orgURI, account: account.LoginID}

	p.mu.Lock()
	if conn, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	conn, err := p.dial(ctx, orgURI, account)
	if err != nil {
		return nil, errs.Remote(fmt.Sprintf("connect to %s", orgURI), 0, err)
	}

	p.mu.Lock()
	if existing, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return existing, nil
	}
	p.conns[key] = conn
	p.mu.Unlock()

	return conn, nil
}

// Invalidate drops the cached connection for (orgURI, account), forcing
// the next GetConnection call to dial again. Callers use this after a
// request fails with an auth error that a fresh connection might clear.
func (p *Pool) Invalidate(orgURI string, account Account) {
	p.mu.Lock()
	delete(p.conns, poolKey{orgURI: orgURI, account: account.LoginID})
	p.mu.Unlock()
}

// Len reports the number of distinct (organization, account) pairs
// currently cached.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Clear drops every cached connection, used on sign-out.
func (p *Pool) Clear() {
	p.mu.Lock()
	p.conns = make(map[poolKey]Connection)
	p.mu.Unlock()
}
