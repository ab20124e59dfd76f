package notify

import "fmt"

// DeliveryError reports a failure in the outbound mail transport.
type DeliveryError struct {
	Op  string // "compose" or "send"
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
