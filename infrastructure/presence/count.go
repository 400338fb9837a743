package presence

import (
	"chat-relay/domain"
	"context"
	"fmt"
)

type Checker interface {
	IsOnline(ctx context.Context, id domain.UserID) (bool, error)
}

// CountOnline returns how many of ids hold a presence key.
// Comparing it with the registry size shows keys left behind by a crashed instance or missing renewals.
func CountOnline(ctx context.Context, checker Checker, ids []domain.UserID) (int, error) {
	count := 0
	for _, id := range ids {
		online, err := checker.IsOnline(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("presence of user %d: %w", id, err)
		}
		if online {
			count++
		}
	}
	return count, nil
}
