package service

import "errors"

var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrInvalidToken            = errors.New("invalid_token")

	// ErrInvalidRedirect means the redirect URI cannot be trusted, so the
	// error must not be sent back to it.
	ErrInvalidRedirect = errors.New("invalid_redirect_uri")

	// ErrInvalidCredentials is a failed user login.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrNotReady is returned when no signing key is available.
	ErrNotReady = errors.New("not_ready")
)

// Error attaches a human readable description to one of the sentinel
// errors above.
type Error struct {
	Err         error
	Description string
}

func (e *Error) Error() string { return e.Err.Error() + ": " + e.Description }
func (e *Error) Unwrap() error { return e.Err }

func describe(err error, desc string) error {
	return &Error{Err: err, Description: desc}
}

// Description returns the description attached with describe, if any.
func Description(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Description
	}
	return ""
}
