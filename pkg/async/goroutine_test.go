package async

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ParseLogLevel("error"), io.Discard)
}

func TestSafeGoRunsFunction(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test", testLogger(), func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function never ran")
	}
}

func TestSafeGoRecoversPanic(t *testing.T) {
	panicked := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test", testLogger(), func(ctx context.Context) error {
		defer close(panicked)
		panic("boom")
	})

	select {
	case <-panicked:
	case <-time.After(time.Second):
		t.Fatal("function never ran")
	}
	// Give the recover path a beat; the test passing at all means the
	// panic did not escape the goroutine.
	time.Sleep(10 * time.Millisecond)
}

func TestSafeGoAppliesTimeout(t *testing.T) {
	deadlineSet := make(chan bool, 1)

	SafeGo(context.Background(), 50*time.Millisecond, "test", testLogger(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadlineSet <- ok
		return nil
	})

	select {
	case ok := <-deadlineSet:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("function never ran")
	}
}

func TestSafeGoNoError(t *testing.T) {
	done := make(chan struct{})

	SafeGoNoError(context.Background(), time.Second, "test", testLogger(), func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function never ran")
	}
}
