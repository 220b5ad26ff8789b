package bitcoin

import "errors"

var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrSignatureInvalid = errors.New("signature verification failed")
)
