package upload

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is the precondition failure for an upload request by a
// user who has never authorized the publish platform. Surfaced before any
// upload attempt is created; not retryable.
var ErrNoCredentials = errors.New("no publish credentials found for user")

// ErrTokenExpired indicates an access token past its expiry with no refresh
// token stored. The user must re-authorize.
var ErrTokenExpired = errors.New("access token expired and no refresh token available")

// AuthError indicates the stored credential could not produce a valid access
// token: expired without a refresh token, or refresh rejected. Terminal for
// the attempt; the credential record is kept.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authorization failed: %v", e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError indicates the remote publish itself failed.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload failed: %v", e.Err) }

func (e *UploadError) Unwrap() error { return e.Err }
