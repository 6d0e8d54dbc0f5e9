package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for Relaychat.
// It includes standard claims required by the JWT specification and custom claims
// necessary for identifying users within the chat system.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the stable unique identifier of the account the token was issued to.
	// It is the subject the gateway resolves against the identity store at connection time.
	UserID string `json:"user_id"`

	// Username is the display name of the account at issuance time, carried for
	// convenience so HTTP handlers can label responses without a store lookup.
	Username string `json:"username"`
}
