package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/api"
)

func nextResult(t *testing.T, p *Poller) ResultMsg {
	t.Helper()
	ch := make(chan ResultMsg, 1)
	go func() { ch <- p.WaitForNextResult()().(ResultMsg) }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for result")
		return ResultMsg{}
	}
}

func TestInitialFetchAndTicks(t *testing.T) {
	var calls atomic.Int32
	p := New()
	p.Register(FeedWeather, 20*time.Millisecond, func(ctx context.Context) (any, error) {
		return int(calls.Add(1)), nil
	})

	cmd := p.Start()
	require.NotNil(t, cmd)
	defer p.Stop()

	first := cmd().(ResultMsg)
	assert.Equal(t, FeedWeather, first.Feed)
	assert.Equal(t, 1, first.Data)
	assert.NoError(t, first.Err)

	second := nextResult(t, p)
	assert.Equal(t, 2, second.Data)

	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].LastRefresh.IsZero())
}

func TestRefreshTriggersOnlyThatFeed(t *testing.T) {
	var weather, air atomic.Int32
	p := New()
	p.Register(FeedWeather, time.Hour, func(context.Context) (any, error) {
		weather.Add(1)
		return nil, nil
	})
	p.Register(FeedAirQuality, time.Hour, func(context.Context) (any, error) {
		air.Add(1)
		return nil, nil
	})
	p.Start()
	defer p.Stop()

	nextResult(t, p)
	nextResult(t, p)

	p.Refresh(FeedAirQuality)
	msg := nextResult(t, p)
	assert.Equal(t, FeedAirQuality, msg.Feed)
	assert.Equal(t, int32(1), weather.Load())
	assert.Equal(t, int32(2), air.Load())

	p.RefreshAll()
	nextResult(t, p)
	nextResult(t, p)
	assert.Equal(t, int32(2), weather.Load())
	assert.Equal(t, int32(3), air.Load())
}

func TestErrorsAreReported(t *testing.T) {
	p := New()
	p.Register(FeedNotifications, time.Hour, func(context.Context) (any, error) {
		return nil, &api.AuthError{Method: "GET", Path: "/api/notifications"}
	})
	p.Register(FeedWeather, time.Hour, func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	p.Start()
	defer p.Stop()

	got := map[Feed]ResultMsg{}
	for range 2 {
		msg := nextResult(t, p)
		got[msg.Feed] = msg
	}
	assert.True(t, got[FeedNotifications].Unauthorized)
	assert.False(t, got[FeedWeather].Unauthorized)
	assert.EqualError(t, got[FeedWeather].Err, "boom")

	for _, s := range p.Statuses() {
		assert.Equal(t, FeedError, s.State, s.Feed)
	}
}

func TestStopCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	p := New()
	p.Register(FeedWeather, time.Hour, func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p.Start()
	<-started

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.False(t, p.Running())
}
