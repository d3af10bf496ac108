package shopapi

import (
	"errors"
	"fmt"
)

// BusinessError is a 2xx reply whose envelope carried a non-success response code.
type BusinessError struct {
	Operation string
	Code      string
	Message   string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("shop api %s: response code %s: %s", e.Operation, e.Code, e.Message)
}

// IsAlreadyExists reports whether err is a business failure with code "01".
func IsAlreadyExists(err error) bool {
	var business *BusinessError
	return errors.As(err, &business) && business.Code == CodeAlreadyExists
}

// AsBusiness unwraps a BusinessError from err.
func AsBusiness(err error) (*BusinessError, bool) {
	var business *BusinessError
	if errors.As(err, &business) {
		return business, true
	}
	return nil, false
}

// StatusError is a non-2xx HTTP reply.
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("shop api %s: http %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("shop api %s: http %d", e.Operation, e.StatusCode)
}
