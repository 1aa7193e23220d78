package identity

import "errors"

var (
	// ErrUnauthenticated is returned when no verified external subject is available.
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrInvalidStorageIdentity = errors.New("invalid storage identity")
)
