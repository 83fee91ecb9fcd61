// Package errs defines the error taxonomy of spec.md §7 as wrapped
// sentinels, the grounded choice since no third-party error library (e.g.
// pkg/errors-style stack traces) appears anywhere in the retrieval pack —
// stdlib errors.Is/As and fmt.Errorf("%w", ...) wrapping is the idiomatic
// default absent one.
package errs

import "errors"

var (
	// ErrTransientNetwork covers streaming/REST I/O errors: logged at
	// warning, retried locally, never propagated.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrRateLimited surfaces as an error response still carrying the
	// request_id, so Trader can retire the correlation without a state
	// change.
	ErrRateLimited = errors.New("rate limit acquire timed out")

	// ErrExchangeRejection marks a submission that came back without a
	// uuid: Trader must not install a PendingOrder for it.
	ErrExchangeRejection = errors.New("exchange rejected order")

	// ErrOrderTimeout marks a pending order that exceeded PENDING_TIMEOUT
	// without reaching a terminal state.
	ErrOrderTimeout = errors.New("order timed out")

	// ErrFatal covers startup failures (e.g. invalid exchange
	// credentials) that should prevent the bot from starting at all.
	ErrFatal = errors.New("fatal startup error")
)
