// Package resilience provides the guards wrapped around every remote model call:
// a fixed-window rate limiter, a failure-count circuit breaker and a bounded
// retry executor with jittered exponential backoff. All shared state lives in
// an injected kv.Store so several processes can share one set of counters.
package resilience
