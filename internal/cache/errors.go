package cache

import "github.com/cockroachdb/errors"

var (
	// ErrConfiguration marks invalid options. Construction aborts.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid call arguments.
	ErrValidation = errors.New("validation error")
)

func configErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func validationErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}
