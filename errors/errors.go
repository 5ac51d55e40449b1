package errors

import "fmt"

var (
	// Connection refusal at the websocket handshake.
	ErrAuthenticationFailed = fmt.Errorf("authentication failed")

	// Events received from a connection that never completed authentication.
	ErrUnauthorized = fmt.Errorf("unauthorized")

	ErrEmptyContent     = fmt.Errorf("message content is empty")
	ErrContentTooLong   = fmt.Errorf("message content exceeds the maximum length")
	ErrNotChannelMember = fmt.Errorf("user is not a member of the channel")

	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrChannelNotFound   = fmt.Errorf("channel not found")
	ErrUserAlreadyExists = fmt.Errorf("a user with this email already exists")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)
