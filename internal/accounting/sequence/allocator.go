// Package sequence hands out the per-company journal correlativo.
package sequence

import (
	"context"
	"fmt"
)

// Store bumps the company counter inside the caller's transaction and returns the new value.
// The row stays locked until that transaction ends, so allocation order follows commit order.
type Store interface {
	NextCorrelativo(ctx context.Context, companyID int64) (int64, error)
}

// Next returns the next correlativo for companyID. Values start at 1.
func Next(ctx context.Context, store Store, companyID int64) (int64, error) {
	if companyID <= 0 {
		return 0, fmt.Errorf("sequence: company required")
	}
	n, err := store.NextCorrelativo(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("sequence: next for company %d: %w", companyID, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("sequence: counter for company %d returned %d", companyID, n)
	}
	return n, nil
}

// Block reserves count values in allocation order.
func Block(ctx context.Context, store Store, companyID int64, count int) ([]int64, error) {
	out := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		n, err := Next(ctx, store, companyID)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
