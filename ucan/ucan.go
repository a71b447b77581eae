// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ucan declares the authorization boundary of the file system.
//
// Zerofs has no ambient authority: every operation presents a signed,
// delegable capability token (a UCAN). The file system itself never
// interprets token internals — delegation chains, audience checks and
// capability schemas belong to the verifier, which this package treats
// as a trusted oracle answering yes or no. Embedding that logic in the
// tree code would create a bidirectional dependency between the access
// model and the file system.
package ucan // import "zerofs.io/ucan"

import (
	"context"

	"zerofs.io/errors"
	"zerofs.io/log"
	"zerofs.io/zerofs"
)

// A Token is an encoded UCAN as presented by a caller.
type Token string

// A Capability names one right over one resource, such as opening a
// path for writing.
type Capability struct {
	// Resource is the item the right applies to, here a path name.
	Resource zerofs.PathName
	// Ability is the namespaced action, such as "fs/read".
	Ability string
}

// The abilities the file system requires for its operations.
const (
	AbilityRead   = "fs/read"
	AbilityWrite  = "fs/write"
	AbilityCreate = "fs/create"
	AbilityMutate = "fs/mutate"
)

// Verifier is the oracle that decides whether a token grants a set of
// capabilities to an audience. A nil error means the operation is
// authorized; any other result surfaces to the caller as a permission
// failure.
type Verifier interface {
	Verify(ctx context.Context, t Token, audience zerofs.DID, caps ...Capability) error
}

// Auth bundles the token a caller presented with the verifier and
// audience it must be checked against, so that the tree code can
// authorize an operation without knowing where either came from.
type Auth struct {
	Token    Token
	Audience zerofs.DID
	Verifier Verifier
}

// Verify checks the bundled token against the required capabilities.
// An Auth with a nil Verifier authorizes everything; it is the form
// used by in-process callers that already hold the root capability.
func (a Auth) Verify(ctx context.Context, caps ...Capability) error {
	if a.Verifier == nil {
		return nil
	}
	if err := a.Verifier.Verify(ctx, a.Token, a.Audience, caps...); err != nil {
		return errors.E(errors.Ucan, a.Audience, err)
	}
	return nil
}

// InProcess is a permissive verifier for tests and single-process
// deployments: it accepts any non-empty token and logs the decision.
type InProcess struct{}

var _ Verifier = InProcess{}

// Verify implements Verifier.
func (InProcess) Verify(_ context.Context, t Token, audience zerofs.DID, caps ...Capability) error {
	if t == "" {
		return errors.E("ucan.Verify", errors.Ucan, errors.Str("empty token"))
	}
	for _, c := range caps {
		log.Debug.Printf("ucan: grant %s on %s to %s", c.Ability, c.Resource, audience)
	}
	return nil
}
