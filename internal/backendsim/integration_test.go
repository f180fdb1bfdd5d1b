package backendsim_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchdesk/internal/backendsim"
	"dispatchdesk/internal/call"
	"dispatchdesk/internal/collector"
	"dispatchdesk/internal/config"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/dispatch"
	"dispatchdesk/internal/events"
	"dispatchdesk/internal/filter"
	"dispatchdesk/internal/gateway"
	"dispatchdesk/internal/queue"
	"dispatchdesk/internal/ratelimit"
	"dispatchdesk/internal/simulate"
)

// End-to-end: client -> in-process gateway proxy -> fake backend over HTTP.

func newDesk(t *testing.T) (*backendsim.Server, *gateway.Client) {
	t.Helper()
	backend := backendsim.NewServer(backendsim.Options{Seed: 42})
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	proxy := gateway.NewProxy(ts.URL, ts.Client(), ratelimit.NewRateLimiter(100), nil)
	client := gateway.NewClient("http://gateway", &http.Client{
		Transport: gateway.HandlerTransport{Handler: proxy},
		Timeout:   5 * time.Second,
	}, nil)
	return backend, client
}

func TestIntegration_SimulateThenSync(t *testing.T) {
	backend, client := newDesk(t)
	ctx := context.Background()

	coll := collector.NewCollector(nil)
	sim := simulate.New(client, simulate.Options{Collector: coll})
	progress, run, err := sim.Run(ctx, 25, nil)
	require.NoError(t, err)

	var seen []simulate.Progress
	for p := range progress {
		seen = append(seen, p)
	}
	run.Wait()
	coll.Close()

	assert.Equal(t, simulate.StatusCompleted, run.Status())
	assert.Equal(t, 25, run.Processed())
	require.Len(t, seen, 3)
	assert.Equal(t, 1.0, seen[2].Fraction)
	assert.EqualValues(t, 3, backend.BatchRequests())

	summary := coll.Compute()
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 25, summary.Processed)

	syncer := queue.New(client, queue.Options{})
	snapshot, err := syncer.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 25)
	for i := 1; i < len(snapshot); i++ {
		assert.False(t, snapshot[i].Timestamp.After(snapshot[i-1].Timestamp))
	}

	shown := filter.Apply(snapshot, filter.Criteria{Criticality: filter.All, Limit: filter.DefaultLimit})
	assert.Len(t, shown, filter.DefaultLimit)
}

func TestIntegration_BatchFailureStopsRun(t *testing.T) {
	backend, client := newDesk(t)
	backend.SetUnderReport(1)

	bus := events.NewBus()
	notes, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	// First batch succeeds, the second fails.
	sim := simulate.New(client, simulate.Options{Notifier: bus})
	stop := simulate.NewStopToken()
	progress, run, err := sim.Run(context.Background(), 30, stop)
	require.NoError(t, err)

	first := <-progress
	backend.FailNextBatches(1)
	for range progress {
	}
	run.Wait()

	assert.Equal(t, 9, first.Processed)
	assert.Equal(t, simulate.StatusStopped, run.Status())
	var batchErr *simulate.BatchError
	require.True(t, errors.As(run.Err(), &batchErr))
	assert.Equal(t, 9, batchErr.Processed)

	var status *gateway.StatusError
	require.True(t, errors.As(run.Err(), &status))
	assert.Equal(t, http.StatusInternalServerError, status.StatusCode)

	n := <-notes
	assert.Equal(t, core.KindError, n.Kind)
	assert.Equal(t, "Simulation Error", n.Title)
}

func TestIntegration_DispatchAndClear(t *testing.T) {
	backend, client := newDesk(t)
	ctx := context.Background()
	backend.Add(call.Call{CallID: "c1", Transcription: "chest pain", Criticality: call.CriticalityHigh})

	syncer := queue.New(client, queue.Options{})
	_, err := syncer.Sync(ctx)
	require.NoError(t, err)
	selected, ok := syncer.Find("c1")
	require.True(t, ok)

	got, err := client.GetCall(ctx, selected.CallID)
	require.NoError(t, err)
	assert.Equal(t, "chest pain", got.Transcription)

	_, err = client.GetCall(ctx, "missing")
	assert.True(t, gateway.IsNotFound(err))

	var dispatched []core.Notification
	action := dispatch.New(selected.CallID, dispatch.Options{
		Latency:  -1,
		Notifier: core.NotifierFunc(func(n core.Notification) { dispatched = append(dispatched, n) }),
	})
	require.NoError(t, action.Confirm(ctx))
	require.Len(t, dispatched, 1)
	assert.Equal(t, "c1", dispatched[0].CallID)

	require.NoError(t, syncer.ClearAll(ctx))
	assert.Empty(t, syncer.Snapshot())
	assert.Empty(t, backend.Calls())
}

func TestIntegration_UnconfiguredBackendFailsClosed(t *testing.T) {
	backend := backendsim.NewServer(backendsim.Options{})
	ts := httptest.NewServer(backend.Handler())
	defer ts.Close()

	// The fake backend is up, but the proxy only knows the placeholder URL.
	proxy := gateway.NewProxy(config.PlaceholderBackendURL, ts.Client(), nil, nil)
	client := gateway.NewClient("http://gateway", &http.Client{Transport: gateway.HandlerTransport{Handler: proxy}}, nil)

	_, err := client.ListCalls(context.Background(), gateway.ListAll)
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	_, err = client.SubmitBatch(context.Background(), []call.Submission{{Transcription: "x"}})
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	assert.EqualValues(t, 0, backend.Requests())
}
