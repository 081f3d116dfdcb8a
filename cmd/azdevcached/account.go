package main

import (
	"context"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
)

// unboundAccountProvider reports permanently signed out. Binding a real
// OAuth or PAT-based sign-in flow is out of this core's scope; a real
// deployment replaces this with a concrete AccountProvider and the
// CacheManager reacts to its sign-in/sign-out events the same way.
type unboundAccountProvider struct{}

func newUnboundAccountProvider() *unboundAccountProvider { return &unboundAccountProvider{} }

func (unboundAccountProvider) IsSignedIn(ctx context.Context) (bool, error) { return false, nil }

func (unboundAccountProvider) GetDefaultAccount(ctx context.Context) (liveclient.Account, error) {
	return liveclient.Account{}, errs.Unsupported("no account provider bound")
}

func (unboundAccountProvider) SignIn(ctx context.Context) error {
	return errs.Unsupported("no account provider bound")
}

func (unboundAccountProvider) SignOut(ctx context.Context) error { return nil }
