package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned when an evaluation runs past its time limit.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned when a newer evaluation started before this
	// one finished.
	ErrSuperseded = errors.New("evaluation superseded by newer request")

	// errAbandoned is raised inside builtins once the caller has stopped
	// waiting for the evaluation.
	errAbandoned = errors.New("evaluation abandoned")
)

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	report *Report
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout the goroutine may still be running. abandoned is set so its
// builtins stop touching the session, and the generation check discards
// its result when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
	abandoned *atomic.Bool,
) (*Report, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}

		return res.report, res.errors, res.err

	case <-timer.C:
		abandoned.Store(true)
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
