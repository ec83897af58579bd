// Package fallback extracts records from free-form text with deterministic
// keyword and pattern rules. The gateway uses it whenever the remote model is
// unavailable or its answer cannot be trusted.
package fallback
