package broker

import (
	stderrors "errors"
	"fmt"
)

// InstanceExistsError is returned when a create request names an instance ID
// that is already provisioned. The request is rejected before any mutation.
type InstanceExistsError struct {
	InstanceID string
	ServiceID  string
}

func (e *InstanceExistsError) Error() string {
	return fmt.Sprintf("service instance %q already exists for service %q", e.InstanceID, e.ServiceID)
}

// IsInstanceExists reports whether err (or anything it wraps) is an
// InstanceExistsError.
func IsInstanceExists(err error) bool {
	var exists *InstanceExistsError
	return stderrors.As(err, &exists)
}
