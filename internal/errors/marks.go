package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors used with Mark to classify failures. Callers should never
// compare error strings; use the Is* helpers instead.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDatabase         = errors.New("database error")
	ErrGateway          = errors.New("gateway error")
	ErrConfiguration    = errors.New("configuration error")
	ErrSystem           = errors.New("system error")
	ErrInternal         = errors.New("internal error")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsGateway reports whether the error came from the payment gateway and is
// a candidate for application-level retry.
func IsGateway(err error) bool {
	return errors.Is(err, ErrGateway)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
