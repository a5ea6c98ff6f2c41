package extraction

import "fmt"

// ProviderError is a failed or rejected provider call. The provider contributes nothing for the
// item; extraction continues.
type ProviderError struct {
	Provider string
	RecordID int64
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (record %d): %s: %v", e.Provider, e.RecordID, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (record %d): %s", e.Provider, e.RecordID, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
