package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xhad/ragchat/internal/types"
)

// CallPolicy bounds one kind of external call. Each attempt runs under
// Timeout; failed attempts are retried up to Attempts times in total, the
// wait between them doubling from Backoff.
type CallPolicy struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// Policies holds the call policy for each collaborator.
type Policies struct {
	Embed    CallPolicy
	Store    CallPolicy
	Generate CallPolicy
}

func DefaultPolicies() Policies {
	return Policies{
		Embed:    CallPolicy{Timeout: 30 * time.Second, Attempts: 3, Backoff: 500 * time.Millisecond},
		Store:    CallPolicy{Timeout: 15 * time.Second, Attempts: 3, Backoff: 250 * time.Millisecond},
		Generate: CallPolicy{Timeout: 120 * time.Second, Attempts: 1},
	}
}

// withDefaults fills every zero policy from DefaultPolicies.
func (p Policies) withDefaults() Policies {
	d := DefaultPolicies()
	if p.Embed == (CallPolicy{}) {
		p.Embed = d.Embed
	}
	if p.Store == (CallPolicy{}) {
		p.Store = d.Store
	}
	if p.Generate == (CallPolicy{}) {
		p.Generate = d.Generate
	}
	return p
}

// call runs fn under policy and tags a final failure with kind.
func call[T any](ctx context.Context, policy CallPolicy, kind error, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff

	var (
		zero   T
		result T
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = attemptOnce(ctx, policy.Timeout, fn)
		if err == nil {
			return result, nil
		}
		if attempt == attempts || ctx.Err() != nil || errors.Is(err, types.ErrConfig) {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, types.Wrap(kind, op, err)
		case <-timer.C:
		}
		backoff *= 2
	}

	return zero, types.Wrap(kind, op, err)
}

func do(ctx context.Context, policy CallPolicy, kind error, op string, fn func(context.Context) error) error {
	_, err := call(ctx, policy, kind, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		// some clients flatten the deadline into their own error text
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return result, err
}
