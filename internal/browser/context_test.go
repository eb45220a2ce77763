// internal/browser/context_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineContextCancelsWhenSecondCancels(t *testing.T) {
	ctx1 := context.Background()
	ctx2, cancel2 := context.WithCancel(context.Background())

	combined, cancel := CombineContext(ctx1, ctx2)
	defer cancel()

	require.NoError(t, combined.Err())
	cancel2()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled after ctx2 cancellation")
	}
}

func TestCombineContextCancelsWhenFirstCancels(t *testing.T) {
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2 := context.Background()

	combined, cancel := CombineContext(ctx1, ctx2)
	defer cancel()

	cancel1()
	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled after ctx1 cancellation")
	}
}

func TestCombineContextInheritsValuesFromFirst(t *testing.T) {
	type key struct{}
	ctx1 := context.WithValue(context.Background(), key{}, "session")
	ctx2 := context.WithValue(context.Background(), key{}, "operation")

	combined, cancel := CombineContext(ctx1, ctx2)
	defer cancel()

	assert.Equal(t, "session", combined.Value(key{}))
}

func TestCombineContextOwnCancel(t *testing.T) {
	combined, cancel := CombineContext(context.Background(), context.Background())
	cancel()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context ignored its own cancel func")
	}
}
