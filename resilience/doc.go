// Package resilience provides retry with exponential backoff and jitter.
//
//	result, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*Run, error) {
//	    return broker.Submit(ctx, run)
//	})
package resilience
