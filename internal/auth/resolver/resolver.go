package resolver

import (
	"context"
)

// UnitResolver determines which organisational units a user belongs to.
// It is the only place where user-to-unit mapping logic lives; the gateway
// turns the result into a connection's delivery scope.
type UnitResolver interface {
	UnitIDs(ctx context.Context, userID string) ([]int64, error)
}
