package jwttoken

import "errors"

type ErrConfig struct{ Msg string }

func (e ErrConfig) Error() string { return "jwt config error: " + e.Msg }

// Verification failures are deliberately collapsed into these four
// values so callers never learn whether a signature, claim, or format
// check failed — except for the safe distinctions that help legitimate
// client retry logic.
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not valid yet")
	ErrTokenMalformed   = errors.New("token is malformed")
)
