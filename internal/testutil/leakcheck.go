// ABOUTME: Goroutine leak checking for tests
// ABOUTME: Wraps goleak so tests can assert no goroutines outlive them
// Package testutil provides shared testing helpers.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn
// goroutines.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, opts...)
}
