package history

import (
	"context"
	"testing"
	"time"
)

// Open talks to a real Postgres instance, which this test suite has no
// access to; what can be exercised without a server is that a
// malformed DSN is rejected before any connection is attempted.
func TestOpenRejectsMalformedDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, "postgres://%zz-not-a-valid-url")
	if err == nil {
		t.Fatalf("expected an error for a malformed DSN")
	}
}
