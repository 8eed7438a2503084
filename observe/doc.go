// Package observe provides observability for guarded dependency calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wrap operations run through the
// resilience primitives to get spans, metrics, and structured logs for
// every call, rejection, retry, and circuit transition.
package observe
