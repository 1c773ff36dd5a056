package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/metrics"
	"github.com/mtlprog/taskindexer/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingParams struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

func (p *pingParams) Normalize() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	return nil
}

var errStore = errors.New("store down")

func newRouter(t *testing.T) (*router.Router, *metrics.Metrics, *[]string) {
	t.Helper()
	m := metrics.New()
	r := router.New(m)
	var seen []string
	router.Handle(r, domain.SourceUser, domain.EventName("Ping"),
		func(_ domain.Event, p *pingParams) string { return "ping:" + p.ID },
		func(_ context.Context, _ domain.Event, p *pingParams) error {
			seen = append(seen, p.ID)
			switch p.Outcome {
			case "skip":
				return fmt.Errorf("%w: ping %s", domain.ErrMissingParent, p.ID)
			case "fail":
				return errStore
			}
			return nil
		})
	return r, m, &seen
}

func ping(params string) domain.Event {
	return domain.Event{
		Source:      domain.SourceUser,
		Name:        "Ping",
		BlockNumber: 7,
		Params:      json.RawMessage(params),
	}
}

func TestDispatchOutcomes(t *testing.T) {
	ctx := context.Background()
	r, m, seen := newRouter(t)

	require.NoError(t, r.Dispatch(ctx, ping(`{"id":"1"}`)))
	require.NoError(t, r.Dispatch(ctx, ping(`{"id":"2","outcome":"skip"}`)))
	require.NoError(t, r.Dispatch(ctx, ping(`{"outcome":"none"}`)), "normalize failure is dropped")
	require.NoError(t, r.Dispatch(ctx, ping(`not json`)), "decode failure is dropped")

	err := r.Dispatch(ctx, ping(`{"id":"3","outcome":"fail"}`))
	require.ErrorIs(t, err, errStore)
	assert.Contains(t, err.Error(), "user Ping at 7:0")

	unknown := ping(`{"id":"4"}`)
	unknown.Name = "Pong"
	require.NoError(t, r.Dispatch(ctx, unknown))

	otherSource := ping(`{"id":"5"}`)
	otherSource.Source = domain.SourceBidding
	require.NoError(t, r.Dispatch(ctx, otherSource))

	assert.Equal(t, []string{"1", "2", "3"}, *seen)
	assert.Equal(t, 1.0, m.EventCount("user", "Ping", metrics.OutcomeApplied))
	assert.Equal(t, 1.0, m.EventCount("user", "Ping", metrics.OutcomeSkipped))
	assert.Equal(t, 2.0, m.EventCount("user", "Ping", metrics.OutcomeDropped))
	assert.Equal(t, 1.0, m.EventCount("user", "Ping", metrics.OutcomeFailed))
	assert.Equal(t, 1.0, m.EventCount("user", "Pong", metrics.OutcomeDropped))
	assert.Equal(t, 1.0, m.EventCount("bidding", "Ping", metrics.OutcomeDropped))
}

func TestHandlesAndRoutes(t *testing.T) {
	r, _, _ := newRouter(t)
	assert.True(t, r.Handles(domain.SourceUser, "Ping"))
	assert.False(t, r.Handles(domain.SourceDispute, "Ping"))
	assert.Equal(t, 1, r.Routes())
}

func TestNilMetricsRouter(t *testing.T) {
	r := router.New(nil)
	assert.NoError(t, r.Dispatch(context.Background(), ping(`{"id":"1"}`)))
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := router.NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		overlap atomic.Bool
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("task:bidding:1")
			defer unlock()
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.Equal(t, 0, k.Len(), "released keys are forgotten")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := router.NewKeyedMutex()
	unlockA := k.Lock("dispute:1")

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("dispute:2")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
	assert.Equal(t, 1, k.Len())
	unlockA()
	assert.Equal(t, 0, k.Len())
}
