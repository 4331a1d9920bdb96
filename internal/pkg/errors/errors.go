package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalid           = errors.New("invalid")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal")
	ErrBusy              = errors.New("resource busy")
	ErrNoValidCredential = errors.New("no valid credential")
	ErrLeaseRevoked      = errors.New("lease revoked")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
