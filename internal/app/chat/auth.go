/*
Package chat contains the core logic of the gateway.

This file defines the session Authenticator, which turns the credential token
presented at connection time into an authenticated identity, or rejects the
connection before any per-connection state exists.
*/
package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
)

// TokenVerifier checks a credential token's signature and expiry and returns
// the subject id it encodes.
type TokenVerifier interface {
	Verify(tokenString string) (uuid.UUID, error)
}

// Authenticator validates handshake credentials against the token verifier
// and the identity store. It is pure validation: no side effects, and it must
// succeed before a Connection is constructed or the registry is touched.
type Authenticator struct {
	verifier TokenVerifier
	users    user.Store
}

// NewAuthenticator returns an Authenticator using the given verifier and identity store.
func NewAuthenticator(verifier TokenVerifier, users user.Store) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		users:    users,
	}
}

// Authenticate resolves credentialToken to an identity. Failures map onto the
// auth taxonomy: missing token, invalid token, or a valid token whose subject
// no longer exists.
func (a *Authenticator) Authenticate(ctx context.Context, credentialToken string) (user.User, *errs.CustomError) {
	if credentialToken == "" {
		return user.User{}, errs.NewError(errs.ErrTokenMissing)
	}

	subjectID, err := a.verifier.Verify(credentialToken)
	if err != nil {
		return user.User{}, errs.NewError(errs.ErrTokenInvalid)
	}

	record, err := a.users.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, errs.NewError(errs.ErrTokenSubjectUnknown)
		}
		return user.User{}, errs.NewError(errs.ErrUnknown, err)
	}

	return record.User, nil
}
