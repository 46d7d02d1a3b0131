package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/command"
)

func newTestBus(t *testing.T, opts Options) (*Bus, *Publisher) {
	b := New(opts)
	pub, err := b.Publisher("test")
	require.NoError(t, err)
	return b, pub
}

func nextWithin(t *testing.T, sub *Subscriber, timeout time.Duration) command.Direction {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	dir, err := sub.Next(ctx)
	require.NoError(t, err)
	return dir
}

func TestLaggingSubscriberSeesLatest(t *testing.T) {
	b, pub := newTestBus(t, DefaultOptions)
	sub, err := b.Subscribe()
	require.NoError(t, err)

	pub.Publish(command.Forward)
	pub.Publish(command.Left)
	pub.Publish(command.Stop)

	assert.Equal(t, command.Stop, nextWithin(t, sub, time.Second))
	assert.EqualValues(t, 2, sub.Lagged())
	_, ok := sub.TryNext()
	assert.False(t, ok, "earlier messages must not be delivered")
}

func TestSubscriberSeesOnlyFuture(t *testing.T) {
	b, pub := newTestBus(t, DefaultOptions)
	pub.Publish(command.Forward)
	sub, err := b.Subscribe()
	require.NoError(t, err)
	_, ok := sub.TryNext()
	assert.False(t, ok)
	pub.Publish(command.Back)
	assert.Equal(t, command.Back, nextWithin(t, sub, time.Second))
}

func TestBroadcastToAllSubscribers(t *testing.T) {
	b, pub := newTestBus(t, DefaultOptions)
	subs := make([]*Subscriber, 2)
	for i := range subs {
		var err error
		subs[i], err = b.Subscribe()
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]command.Direction, len(subs))
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *Subscriber) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			results[i], _ = sub.Next(ctx)
		}(i, sub)
	}
	time.Sleep(10 * time.Millisecond)
	pub.Publish(command.Right)
	wg.Wait()
	assert.Equal(t, []command.Direction{command.Right, command.Right}, results)
}

func TestPublishOrderWithCapacity(t *testing.T) {
	b, pub := newTestBus(t, Options{Capacity: 3})
	sub, err := b.Subscribe()
	require.NoError(t, err)
	for _, dir := range []command.Direction{command.Forward, command.Back, command.Left, command.Right} {
		pub.Publish(dir)
	}
	var got []command.Direction
	for {
		dir, ok := sub.TryNext()
		if !ok {
			break
		}
		got = append(got, dir)
	}
	assert.Equal(t, []command.Direction{command.Back, command.Left, command.Right}, got)
	assert.EqualValues(t, 1, sub.Lagged())
}

func TestLimits(t *testing.T) {
	b := New(Options{MaxSubscribers: 1, MaxPublishers: 1})
	assert.Equal(t, 1, b.Options().Capacity)

	sub, err := b.Subscribe()
	require.NoError(t, err)
	_, err = b.Subscribe()
	assert.Equal(t, ErrTooManySubscribers, err)
	require.NoError(t, sub.Close())
	assert.Equal(t, ErrClosed, sub.Close())
	_, err = b.Subscribe()
	assert.NoError(t, err)

	pub, err := b.Publisher("a")
	require.NoError(t, err)
	assert.Equal(t, "a", pub.Name())
	_, err = b.Publisher("b")
	assert.Equal(t, ErrTooManyPublishers, err)
	require.NoError(t, pub.Close())
	_, err = b.Publisher("b")
	assert.NoError(t, err)
}

func TestClosedPublisherDrops(t *testing.T) {
	b := New(Options{MaxPublishers: 1})
	sub, err := b.Subscribe()
	require.NoError(t, err)
	old, err := b.Publisher("old")
	require.NoError(t, err)
	require.NoError(t, old.Close())
	cur, err := b.Publisher("cur")
	require.NoError(t, err)

	old.Publish(command.Left)
	_, ok := sub.TryNext()
	assert.False(t, ok)

	cur.Publish(command.Right)
	dir, ok := sub.TryNext()
	assert.True(t, ok)
	assert.Equal(t, command.Right, dir)
}

func TestNextCanceled(t *testing.T) {
	b := New(DefaultOptions)
	sub, err := b.Subscribe()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sub.Next(ctx)
	assert.Equal(t, context.Canceled, err)
}
