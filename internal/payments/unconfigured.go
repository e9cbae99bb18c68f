package payments

import (
	"context"

	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

// Unconfigured stands in for a provider whose credentials are missing. Every
// gateway-family checkout fails with a configuration error; cash on delivery still works.
type Unconfigured struct {
	Provider string
	Reason   error
}

func NewUnconfigured(provider string, reason error) *Unconfigured {
	if reason == nil {
		reason = pkgerrors.New(pkgerrors.CodeConfiguration, provider+" credentials are not set")
	}
	return &Unconfigured{Provider: provider, Reason: reason}
}

func (u *Unconfigured) Name() string {
	return u.Provider
}

func (u *Unconfigured) Ready() bool {
	return false
}

func (u *Unconfigured) Configured() error {
	return u.Reason
}

func (u *Unconfigured) Open(context.Context, Request) (*Handle, error) {
	return nil, u.Reason
}

func (u *Unconfigured) Cancel(context.Context, string) error {
	return nil
}
