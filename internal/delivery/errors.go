package delivery

import "fmt"

// DeliveryError is a failed send on one channel. The record stays undelivered and is picked up
// again on the next run.
type DeliveryError struct {
	Channel  string
	RecordID int64
	Cause    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver record %d via %s: %v", e.RecordID, e.Channel, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
