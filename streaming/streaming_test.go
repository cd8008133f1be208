package streaming

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	p := New(1, 1, time.Second)
	require.NoError(t, p.Submit(Message{Index: 0, Data: []byte("a")}))

	err := p.Submit(Message{Index: 1, Data: []byte("b")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity")
}

func TestProcessSingleSucceeds(t *testing.T) {
	p := New(4, 2, time.Second)
	require.NoError(t, p.Submit(Message{Index: 0, Data: []byte("hello")}))

	ok, err := p.ProcessSingle(context.Background(), func(_ context.Context, data []byte) error {
		assert.Equal(t, "hello", string(data))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)

	stats := p.GetStats()
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.InFlight)
}

func TestProcessSingleOnEmptyQueueIsNoop(t *testing.T) {
	p := New(4, 2, time.Second)
	ok, err := p.ProcessSingle(context.Background(), func(_ context.Context, _ []byte) error { return nil })
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessSingleFailureIsCountedNotPropagated(t *testing.T) {
	p := New(4, 2, time.Second)
	require.NoError(t, p.Submit(Message{Index: 0, Data: []byte("x")}))

	ok, err := p.ProcessSingle(context.Background(), func(_ context.Context, _ []byte) error {
		return errors.New("boom")
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, p.GetStats().Failed)
}

func TestProcessSingleTimeoutCountsAsDroppedNotFailed(t *testing.T) {
	p := New(4, 2, time.Millisecond)
	require.NoError(t, p.Submit(Message{Index: 0, Data: []byte("x")}))

	ok, err := p.ProcessSingle(context.Background(), func(ctx context.Context, _ []byte) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.True(t, ok)

	stats := p.GetStats()
	assert.Equal(t, 1, stats.DroppedDueToTimeout)
	assert.Equal(t, 0, stats.Failed)
}

func TestNewWithOptionsAppliesLoggerAndBuffer(t *testing.T) {
	p, err := NewWithOptions(WithChannelBufferSize(2), WithMaxConcurrency(1), WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, p.Submit(Message{Index: 0}))
	require.NoError(t, p.Submit(Message{Index: 1}))
	err = p.Submit(Message{Index: 2})
	require.Error(t, err)
}

func TestNewWithOptionsRejectsNonPositiveBuffer(t *testing.T) {
	_, err := NewWithOptions(WithChannelBufferSize(0))
	require.Error(t, err)
}

func TestCheckpointRoundTrips(t *testing.T) {
	p := New(4, 2, time.Second)
	cp := Checkpoint{Position: 5, ByteOffset: 1024, ProcessedCount: 5}
	p.SetCheckpoint(cp)
	assert.Equal(t, cp, p.GetCheckpoint())
}

func TestHasBackpressureAtHalfCapacity(t *testing.T) {
	p := New(4, 2, time.Second)
	assert.False(t, p.HasBackpressure())

	require.NoError(t, p.Submit(Message{Index: 0}))
	require.NoError(t, p.Submit(Message{Index: 1}))
	assert.True(t, p.HasBackpressure())
}

func TestStreamingInvariantAccountsForEveryMessage(t *testing.T) {
	p := New(8, 4, 50*time.Millisecond)
	require.NoError(t, p.Submit(Message{Index: 0, Data: []byte("ok")}))
	require.NoError(t, p.Submit(Message{Index: 1, Data: []byte("fail")}))
	require.NoError(t, p.Submit(Message{Index: 2, Data: []byte("slow")}))

	process := func(ctx context.Context, data []byte) error {
		switch string(data) {
		case "ok":
			return nil
		case "fail":
			return errors.New("boom")
		default:
			<-ctx.Done()
			return ctx.Err()
		}
	}

	for i := 0; i < 3; i++ {
		_, err := p.ProcessSingle(context.Background(), process)
		require.NoError(t, err)
	}

	stats := p.GetStats()
	received := stats.Succeeded + stats.Failed + stats.InFlight + stats.DroppedDueToTimeout
	assert.Equal(t, 3, received)
}
