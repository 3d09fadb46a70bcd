// Package security derives a posture summary from engine configuration.
// It is pure computation over plain values so the root package can expose
// a report without leaking config internals.
package security
