package jwt

import (
	"fmt"

	"github.com/google/uuid"
)

// Verifier validates credential tokens against a shared HMAC secret and
// resolves the subject they encode. It satisfies the chat package's
// TokenVerifier contract.
type Verifier struct {
	secretKey string
}

// NewVerifier returns a Verifier bound to the given signing secret.
func NewVerifier(secretKey string) *Verifier {
	return &Verifier{secretKey: secretKey}
}

// Verify checks the token's signature and expiry and returns the user id it was issued to.
func (v *Verifier) Verify(tokenString string) (uuid.UUID, error) {
	payload, err := ParseToken(tokenString, v.secretKey)
	if err != nil {
		return uuid.Nil, err
	}

	subjectID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a valid user id: %w", err)
	}

	return subjectID, nil
}
