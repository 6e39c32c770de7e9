package authority

import (
	"errors"
	"fmt"
)

// UnauthorizedPartitionAccessError is returned when a caller addresses a
// partition other than their own. The exchange is dropped; nothing about
// the partition is revealed.
type UnauthorizedPartitionAccessError struct {
	StoreID  string
	CallerID string
}

func (e *UnauthorizedPartitionAccessError) Error() string {
	return fmt.Sprintf("caller %q is not authorized for partition %q", e.CallerID, e.StoreID)
}

func IsUnauthorizedPartitionAccess(err error) bool {
	var target *UnauthorizedPartitionAccessError
	return errors.As(err, &target)
}
