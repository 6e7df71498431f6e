package rediskit

import "time"

// Hooks are lightweight callbacks for high-signal events: exhausted retries,
// degraded returns, limiter fail-open, queue bookkeeping anomalies.
// Implementations MUST be cheap and non-blocking - they run on hot paths.
// Wrap with hooks/async to offload slow sinks.
type Hooks interface {
	// RetryExhausted fires when a store round-trip failed through every
	// attempt and the operation degraded to its safe default.
	// op is the logical operation name ("get", "set", "delete", ...).
	RetryExhausted(op, key string, attempts int, elapsed time.Duration, err error)

	// DecodeMiss fires when a stored entry could not be decompressed or
	// decoded and was treated as a cache miss.
	DecodeMiss(key, method string, err error)

	// QueueAnomaly fires when completing or failing a task id that is not
	// in the processing map (double-complete, double-fail, or loss).
	QueueAnomaly(queue, taskID, reason string)

	// LimiterFailOpen fires when an admission check could not reach the
	// store and the request was allowed through unchecked.
	LimiterFailOpen(identifier string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) RetryExhausted(string, string, int, time.Duration, error) {}
func (NopHooks) DecodeMiss(string, string, error)                         {}
func (NopHooks) QueueAnomaly(string, string, string)                      {}
func (NopHooks) LimiterFailOpen(string, error)                            {}
