package services

import (
	apierrors "volexplorer/internal/errors"
)

// ErrSessionRequired is returned by portfolio operations called without a session id
var ErrSessionRequired = apierrors.ErrValidation("session", "a session id is required")

func errNegativeTopN() error {
	return apierrors.ErrValidation("top_n", "top_n must be a non-negative integer")
}
