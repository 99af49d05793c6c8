// Package retry executes a single unit of work with bounded retries and
// unjittered exponential backoff.
//
//	exec := retry.NewExecutor(retry.Policy{MaxRetries: 3, BaseBackoff: time.Second}, logger)
//	outcome, attempts := exec.Execute(ctx, item.ID, func(ctx context.Context) model.FetchOutcome {
//	    return fetch(ctx, item)
//	})
//
// With MaxRetries=3 and BaseBackoff=1s the waits before attempts 2, 3 and 4
// are 1s, 2s and 4s. Every failure is treated as transient.
package retry
