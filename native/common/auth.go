package common

import "errors"

// ErrUnauthorized is returned when the hosting environment cannot prove the
// invoking context controls the required principal.
var ErrUnauthorized = errors.New("unauthorized principal")

// Authorizer is the authorization capability provided by the hosting
// environment. Engines decide when a principal must authorize a transition;
// how control of the principal is actually proven (signature checks, session
// context) is the host's concern.
type Authorizer interface {
	// Require fails the current operation unless the invoking context can
	// prove control of the given principal.
	Require(principal [20]byte) error
}

// AuthorizerFunc adapts a plain function to the Authorizer interface.
type AuthorizerFunc func(principal [20]byte) error

func (f AuthorizerFunc) Require(principal [20]byte) error { return f(principal) }

// AllowAll authorizes every principal. Useful for hosts that perform their own
// upfront caller verification, and for tests.
type AllowAll struct{}

func (AllowAll) Require([20]byte) error { return nil }
