package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upande/sprayplan/services/api/erp"
)

type stubFetcher struct {
	payload erp.ScoutingPayload
	err     error
	block   chan struct{}
}

func (s *stubFetcher) FetchScoutingData(_ context.Context, _, _ string) (erp.ScoutingPayload, error) {
	if s.block != nil {
		<-s.block
	}
	return s.payload, s.err
}

func scoutingPayload() erp.ScoutingPayload {
	return erp.ScoutingPayload{
		ScoutingEntries: []erp.ScoutingEntry{{
			Bed:  "Bed 1",
			Zone: 1,
			Observations: map[string][]erp.RawObservation{
				"diseases_scouting_entry": {{Name: "Botrytis", Count: 1}},
			},
		}},
		Varieties: []erp.NamedRef{{Name: "VarA"}},
	}
}

func TestOpenInstallsSession(t *testing.T) {
	manager := NewManager(10 * time.Millisecond)
	fetcher := &stubFetcher{payload: scoutingPayload()}

	s, err := manager.Open(context.Background(), fetcher, "GH-01", "2026-08-30")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "GH-01", s.Greenhouse)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.Empty)
	assert.Equal(t, []string{"VarA"}, s.Varieties)

	got, ok := manager.Get(s.ID)
	assert.True(t, ok)
	assert.Same(t, s, got)
}

func TestOpenEmptyFeed(t *testing.T) {
	manager := NewManager(10 * time.Millisecond)
	fetcher := &stubFetcher{payload: erp.ScoutingPayload{}}

	s, err := manager.Open(context.Background(), fetcher, "GH-01", "2026-08-30")
	require.NoError(t, err)
	assert.True(t, s.Empty)
}

func TestOpenReplacesPreviousSession(t *testing.T) {
	manager := NewManager(10 * time.Millisecond)
	fetcher := &stubFetcher{payload: scoutingPayload()}

	first, err := manager.Open(context.Background(), fetcher, "GH-01", "2026-08-30")
	require.NoError(t, err)
	second, err := manager.Open(context.Background(), fetcher, "GH-02", "2026-08-30")
	require.NoError(t, err)

	_, ok := manager.Get(first.ID)
	assert.False(t, ok)
	_, ok = manager.Get(second.ID)
	assert.True(t, ok)
}

func TestOpenDiscardsStaleFetch(t *testing.T) {
	manager := NewManager(10 * time.Millisecond)

	slow := &stubFetcher{payload: scoutingPayload(), block: make(chan struct{})}
	fast := &stubFetcher{payload: scoutingPayload()}

	type outcome struct {
		s   *Session
		err error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		s, err := manager.Open(context.Background(), slow, "GH-01", "2026-08-29")
		slowDone <- outcome{s, err}
	}()

	// Wait for the slow fetch to claim its generation token before the
	// newer selection arrives.
	assert.Eventually(t, func() bool {
		manager.mu.Lock()
		defer manager.mu.Unlock()
		return manager.generation == 1
	}, time.Second, time.Millisecond)

	newer, err := manager.Open(context.Background(), fast, "GH-01", "2026-08-30")
	require.NoError(t, err)

	close(slow.block)
	result := <-slowDone
	assert.Nil(t, result.s)
	assert.ErrorIs(t, result.err, ErrSuperseded)

	got, ok := manager.Get(newer.ID)
	assert.True(t, ok)
	assert.Equal(t, "2026-08-30", got.Date)
}

func TestOpenFetchError(t *testing.T) {
	manager := NewManager(10 * time.Millisecond)
	fetcher := &stubFetcher{err: errors.New("connection refused")}

	s, err := manager.Open(context.Background(), fetcher, "GH-01", "2026-08-30")
	assert.Nil(t, s)
	assert.Error(t, err)
}

func TestWarehouseChoicesSurviveSessionReplacement(t *testing.T) {
	manager := NewManager(10 * time.Millisecond)
	fetcher := &stubFetcher{payload: scoutingPayload()}

	_, err := manager.Open(context.Background(), fetcher, "GH-01", "2026-08-30")
	require.NoError(t, err)
	manager.SetSourceWarehouse("Mancozeb", "Main Store")

	_, err = manager.Open(context.Background(), fetcher, "GH-02", "2026-08-30")
	require.NoError(t, err)

	assert.Equal(t, "Main Store", manager.SourceWarehouse("Mancozeb"))

	manager.SetSourceWarehouse("Mancozeb", "")
	assert.Empty(t, manager.SourceWarehouse("Mancozeb"))
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	fired := make(chan int, 3)
	d.Trigger(func() { fired <- 1 })
	d.Trigger(func() { fired <- 2 })
	d.Trigger(func() { fired <- 3 })

	select {
	case got := <-fired:
		assert.Equal(t, 3, got)
	case <-time.After(time.Second):
		t.Fatal("debounced function never fired")
	}

	select {
	case got := <-fired:
		t.Fatalf("unexpected extra execution: %d", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	fired := make(chan struct{}, 1)
	d.Trigger(func() { fired <- struct{}{} })
	d.Stop()

	select {
	case <-fired:
		t.Fatal("stopped debouncer still fired")
	case <-time.After(60 * time.Millisecond):
	}
}
