package lexapi

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is how long to sleep between status polls.
const DefaultPollInterval = 5 * time.Second

// DefaultMaxPolls bounds a single status wait.
const DefaultMaxPolls = 60

// StatusFunc fetches the current status of a resource.
type StatusFunc func(ctx context.Context) (string, error)

// WaitForStatus polls fn until the status leaves the wait set, then checks
// it landed in the target set. Waits are bounded by maxPolls and the context
// deadline.
func WaitForStatus(ctx context.Context, fn StatusFunc, wait, target []string, interval time.Duration, maxPolls int) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	var status string
	for polls := 0; ; polls++ {
		var err error
		status, err = fn(ctx)
		if err != nil {
			return err
		}
		if !contains(wait, status) || polls >= maxPolls {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	if !contains(target, status) {
		return fmt.Errorf("unexpected terminal status %q (wanted %v)", status, target)
	}
	return nil
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
