package auth

import "errors"

var (
	// ErrLoginFailed means the portal rejected the credentials, or the login
	// response carried no usable token or profile. The session is cleared.
	ErrLoginFailed = errors.New("login failed")
	// ErrVerificationFailed means the verification endpoint returned no code.
	ErrVerificationFailed = errors.New("verification code not issued")
)
