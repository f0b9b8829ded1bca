package projection

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

const (
	defaultMaxAttempts = 1
	defaultFixedDelay  = time.Second
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeDelay is returned when the fixed delay is negative.
	ErrNegativeDelay = errors.New("delay must not be negative")

	// ErrRetryLimitReached is returned when the foreign entity was still missing after the last attempt.
	ErrRetryLimitReached = errors.New("retry limit reached")
)

// RetryState is a state of the foreign-entity retry state machine.
//
//	POLLING -> FOUND -> CREATED
//	POLLING -> RETRY_LIMIT_REACHED -> ABANDONED
type RetryState string

const (
	StatePolling           RetryState = "POLLING"
	StateFound             RetryState = "FOUND"
	StateRetryLimitReached RetryState = "RETRY_LIMIT_REACHED"
	StateCreated           RetryState = "CREATED"
	StateAbandoned         RetryState = "ABANDONED"
)

// Terminal reports whether no further transition leaves the state.
func (s RetryState) Terminal() bool {
	return s == StateCreated || s == StateAbandoned
}

// RetryOutcome describes how a wait for a foreign entity ended.
type RetryOutcome struct {
	State      RetryState
	Attempts   int
	TotalDelay time.Duration
}

// Complete moves a FOUND outcome to CREATED and a RETRY_LIMIT_REACHED outcome to ABANDONED.
func (o RetryOutcome) Complete() RetryOutcome {
	switch o.State {
	case StateFound:
		o.State = StateCreated
	case StateRetryLimitReached:
		o.State = StateAbandoned
	default:
	}

	return o
}

// RetryPolicy bounds how often and how fast a missing foreign entity is polled.
type RetryPolicy struct {
	maxAttempts int
	delay       time.Duration
}

// RetryOption configures a RetryPolicy using the functional options pattern.
type RetryOption func(*RetryPolicy) error

// NewRetryPolicy creates a policy, by default a single attempt (fail fast).
func NewRetryPolicy(options ...RetryOption) (RetryPolicy, error) {
	policy := RetryPolicy{
		maxAttempts: defaultMaxAttempts,
		delay:       defaultFixedDelay,
	}

	for _, option := range options {
		if err := option(&policy); err != nil {
			return RetryPolicy{}, err
		}
	}

	return policy, nil
}

// FailFast returns a policy with a single attempt.
func FailFast() RetryPolicy {
	return RetryPolicy{maxAttempts: 1, delay: defaultFixedDelay}
}

// MaxAttempts returns the number of attempts including the first one.
func (p RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Delay returns the fixed wait between two attempts.
func (p RetryPolicy) Delay() time.Duration {
	return p.delay
}

// WithMaxAttempts sets the number of attempts including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(policy *RetryPolicy) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		policy.maxAttempts = attempts

		return nil
	}
}

// WithFixedDelay sets the wait between two attempts. There is no wait before the first attempt.
func WithFixedDelay(delay time.Duration) RetryOption {
	return func(policy *RetryPolicy) error {
		if delay < 0 {
			return ErrNegativeDelay
		}

		policy.delay = delay

		return nil
	}
}

// AwaitForeignEntity runs check until it stops failing with mirror.ErrForeignEntityMissing or the
// policy's attempts are used up.
//
// A nil error from check ends in FOUND. Running out of attempts ends in RETRY_LIMIT_REACHED and
// returns ErrRetryLimitReached joined with the last check error. Any other check error, or a
// canceled context while waiting, is returned right away with the outcome still in POLLING.
func AwaitForeignEntity(
	ctx context.Context,
	policy RetryPolicy,
	check func(ctx context.Context) error,
) (RetryOutcome, error) {
	outcome := RetryOutcome{State: StatePolling}
	var lastErr error

	for attempt := 0; attempt < policy.maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(policy.delay)

			select {
			case <-timer.C:
				outcome.TotalDelay += policy.delay
			case <-ctx.Done():
				timer.Stop()
				return outcome, ctx.Err()
			}
		}

		outcome.Attempts++

		lastErr = check(ctx)
		if lastErr == nil {
			outcome.State = StateFound
			return outcome, nil
		}

		if !errors.Is(lastErr, mirror.ErrForeignEntityMissing) {
			return outcome, lastErr
		}
	}

	outcome.State = StateRetryLimitReached

	return outcome, errors.Join(ErrRetryLimitReached, lastErr)
}
