// server/internal/provenance/errors.go
package provenance

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the QR code engine. Handlers map these to HTTP
// statuses with errors.Is; everything else is treated as an internal error.
var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrEncoding   = errors.New("encoding")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}
