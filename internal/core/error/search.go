package errx

import (
	"context"
	"errors"
	"net/http"
)

// WrapSearch maps place search transport failures to AppError.
// Deadline errors become 504, everything else 502.
func WrapSearch(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(err, http.StatusGatewayTimeout, SearchTimeoutMessage)
	}

	return New(err, http.StatusBadGateway, SearchErrorMessage)
}
