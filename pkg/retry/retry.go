// Package retry implements the bounded retry and recovery policy that wraps
// every resolve-and-act operation.
//
// The model is single-threaded cooperative polling: attempt, sleep a bounded
// fixed delay on transient failure, re-attempt, stop at the attempt or time
// budget. There is no background goroutine and no cancellation token;
// exceeding a budget is the only cancellation signal and always surfaces as
// a typed error.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/locus/pkg/config"
	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/logger"
)

// Op is one resolve-and-act attempt. Errors are classified by their
// ExecutionError category: retryable categories are absorbed until the
// budget is exhausted, everything else is returned immediately.
type Op func() error

// Recovery re-establishes a stale handle before the next attempt, walking
// the scope chain from its root. A nil Recovery disables stale recovery.
type Recovery func() error

// Condition is an observable predicate re-checked on every poll.
type Condition func() (bool, error)

// Engine executes operations under the configured retry policy.
type Engine struct {
	cfg config.Config
}

// New creates an engine with the session configuration.
func New(cfg config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Do runs op with up to SearchAttempts attempts. Between attempts it backs
// off by a fixed delay scaled by the scope-chain depth: deeper objects get
// a longer effective window because each of their attempts re-resolves more
// ancestors. A stale-classified failure triggers recovery before the next
// attempt. Once the budget is exhausted, the last transient error is
// surfaced with the attempt count attached; no partial result is returned.
func (e *Engine) Do(depth int, op Op, recover Recovery) error {
	attempts := e.cfg.SearchAttempts
	delay := e.cfg.SearchRetryTimeout * time.Duration(1+depth)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		var exec *core.ExecutionError
		if !errors.As(err, &exec) || !exec.Category.Retryable() {
			// Structural failure: retrying a context switch or a malformed
			// query spends the budget on something retries cannot fix.
			return err
		}
		lastErr = err
		logger.WithFields(map[string]interface{}{
			"attempt":  attempt,
			"attempts": attempts,
			"category": exec.Category.String(),
			"code":     exec.Code,
		}).Debugf("retry: attempt failed: %v", err)

		if attempt == attempts {
			break
		}
		if errors.Is(err, core.ErrStaleElement) && recover != nil {
			time.Sleep(e.cfg.StaleRecoveryTimeout)
			if rerr := recover(); rerr != nil {
				var rexec *core.ExecutionError
				if !errors.As(rerr, &rexec) || !rexec.Category.Retryable() {
					return rerr
				}
				lastErr = rerr
			}
		}
		time.Sleep(delay)
	}

	var exec *core.ExecutionError
	if errors.As(lastErr, &exec) {
		return exec.WithDetails(map[string]interface{}{"attempts": attempts})
	}
	return lastErr
}

// WaitUntil polls cond until it holds, bounded by WaitTimeout. This is the
// positive-wait budget: the condition is expected to eventually become true.
func (e *Engine) WaitUntil(cond Condition, desc string) error {
	return e.poll(cond, desc, e.cfg.WaitTimeout)
}

// WaitMissing polls cond until it holds, bounded by MissingTimeout. This is
// the negative-wait budget: waiting for a legitimately absent element must
// not burn the full positive-wait window.
func (e *Engine) WaitMissing(cond Condition, desc string) error {
	return e.poll(cond, desc, e.cfg.MissingTimeout)
}

func (e *Engine) poll(cond Condition, desc string, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	interval := e.cfg.SearchRetryTimeout

	for {
		ok, err := cond()
		if err != nil {
			var exec *core.ExecutionError
			if errors.As(err, &exec) && exec.Category.Retryable() {
				logger.Debug("wait: %q condition errored transiently: %v", desc, err)
			} else {
				return err
			}
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return core.ErrTimeout.
				WithMessage(fmt.Sprintf("condition %q not met within %s", desc, budget)).
				WithDetails(map[string]interface{}{
					"condition": desc,
					"budget":    budget.String(),
				})
		}
		time.Sleep(interval)
	}
}
