package provider

import (
	"context"
	"fmt"
	"time"
)

// Poll invokes probe at a fixed interval until it succeeds, the attempt
// budget is exhausted or ctx is cancelled. The first successful probe ends
// polling. Callers own the outer deadline; with the defaults (2 s × 30)
// this blocks for up to a minute.
func Poll(ctx context.Context, attempts int, interval time.Duration, probe func(context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = probe(ctx); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrProvisioningTimeout, attempts, lastErr)
}
