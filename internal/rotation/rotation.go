// Package rotation runs an operation against each credential in turn until
// one succeeds, absorbing per-credential failures.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kalambet/cropdoc/internal/model"
)

const DefaultAttemptTimeout = 8 * time.Second

var ErrNoCredentials = errors.New("credential set is empty")

// AttemptError wraps the failure of a single credential attempt.
type AttemptError struct {
	Index int
	Label string
	Err   error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d (%s): %v", e.Index+1, e.Label, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Strategy holds the ordered credential set. It carries no per-call state,
// so one Strategy is shared by all requests.
type Strategy struct {
	creds   []model.Credential
	timeout time.Duration
}

// New validates the credential set. A non-positive timeout selects
// DefaultAttemptTimeout.
func New(creds []model.Credential, attemptTimeout time.Duration) (*Strategy, error) {
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Strategy{creds: append([]model.Credential(nil), creds...), timeout: attemptTimeout}, nil
}

func (s *Strategy) Len() int { return len(s.creds) }

// Result reports how a rotation ended. Exhausted is true when Value is the
// fallback.
type Result[T any] struct {
	Value     T
	Attempts  int
	Exhausted bool
	LastErr   error
}

// Op performs one attempt with one credential.
type Op[T any] func(ctx context.Context, cred model.Credential) (T, error)

// Run tries op with every credential in order, starting from the first on
// every call. It never returns an error: when all attempts fail, or ctx is
// done, the result carries fallback.
func Run[T any](ctx context.Context, s *Strategy, op Op[T], fallback T) Result[T] {
	res := Result[T]{Value: fallback}
	for i, cred := range s.creds {
		if err := ctx.Err(); err != nil {
			res.LastErr = err
			break
		}
		res.Attempts++

		v, err := attempt(ctx, s.timeout, cred, op)
		if err == nil {
			res.Value = v
			res.LastErr = nil
			return res
		}

		res.LastErr = &AttemptError{Index: i, Label: cred.Label(), Err: err}
		log.Warn().
			Err(err).
			Int("index", i).
			Str("provider", string(cred.Provider)).
			Msg("credential attempt failed")
	}
	res.Exhausted = true
	return res
}

type outcome[T any] struct {
	v   T
	err error
}

// attempt runs op under its own deadline. op runs in a goroutine so a call
// that ignores its context is abandoned once the deadline passes.
func attempt[T any](ctx context.Context, timeout time.Duration, cred model.Credential, op Op[T]) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome[T]{v: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := op(ctx, cred)
		done <- outcome[T]{v: v, err: err}
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("attempt abandoned: %w", ctx.Err())
	}
}
