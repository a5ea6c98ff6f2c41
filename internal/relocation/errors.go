package relocation

import "fmt"

// RelocationError is a failed re-host. The original URL is kept; it is never fatal.
type RelocationError struct {
	URL     string
	Message string
	Cause   error
}

func (e *RelocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("relocate %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("relocate %s: %s", e.URL, e.Message)
}

func (e *RelocationError) Unwrap() error {
	return e.Cause
}
