package generate

import (
	"context"
	"errors"

	"github.com/localrivet/chatcycle/internal/errortypes"
)

// Normalize maps an error returned by a Generator onto the request error
// kinds. Typed errors pass through; cancellation, deadlines and untyped
// errors become network errors.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	if errortypes.TypeOf(err) != errortypes.ErrorTypeUnknown {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errortypes.NetworkError(err, "generate call did not complete")
	}
	return errortypes.NetworkError(err, "generate call failed")
}
