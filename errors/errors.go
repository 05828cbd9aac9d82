package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("NOT FOUND")
	ErrInvalidInput = errors.New("INVALID INPUT")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrComputation  = errors.New("COMPUTATION")
	ErrInternal     = errors.New("INTERNAL")
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	return fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
}

// Code returns the code of the first sentinel err wraps, ErrInternal otherwise.
func Code(err error) string {
	for _, sentinel := range []error{ErrNotFound, ErrInvalidInput, ErrUnavailable, ErrComputation} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrInternal.Error()
}
