package delivery

import "fmt"

type (
	// ValidationError is returned when the caller supplied URL is missing
	// or fails sanitization.
	ValidationError struct {
		Value any
	}

	// NotFoundError is returned when a request was processed successfully
	// but nothing qualified for delivery.
	NotFoundError struct {
		Reason string
	}
)

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid URL %v", err.Value)
}

func (err *NotFoundError) Error() string {
	return err.Reason
}
