/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Message Content Errors
const (
	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageContentEmpty indicates that the message content was empty after trimming whitespace.
	ErrMessageContentEmpty = 2202
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrInvalidUsername indicates that the provided username does not match the required format.
	ErrInvalidUsername = 3005

	// ErrInvalidPassword indicates that the provided password does not match the required format.
	ErrInvalidPassword = 3006

	// ErrUserAlreadyExists indicates that the attempted username for registration is already taken.
	ErrUserAlreadyExists = 3007

	// ErrInvalidCredentials indicates that the username/password combination did not match any account.
	ErrInvalidCredentials = 3008

	// ErrUnauthorized indicates that the request requires a valid identity token.
	ErrUnauthorized = 3009

	// ErrTokenMissing indicates that no credential token was supplied at connection time.
	ErrTokenMissing = 3101

	// ErrTokenInvalid indicates that the supplied credential token failed signature or expiry checks.
	ErrTokenInvalid = 3102

	// ErrTokenSubjectUnknown indicates that the token was valid but its subject no longer exists.
	ErrTokenSubjectUnknown = 3103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrMessagePersistence indicates that a chat message could not be written to durable storage.
	ErrMessagePersistence = 5001
)
