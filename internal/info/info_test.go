package info

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackmarket/internal/journal"
	"blackmarket/internal/session"
)

type fakeJournal struct {
	entries []journal.Entry
	limit   int
	err     error
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func (f *fakeJournal) CountByOutcome(context.Context) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]int{journal.OutcomeDelivered: 4, journal.OutcomeDropped: 1}, nil
}

func runningLoop(t *testing.T) *session.Loop {
	t.Helper()
	loop := session.NewLoop(session.Options{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop
}

func newHandler(t *testing.T, j JournalReader) *Handler {
	return NewHandler(Sources{
		Loop:     runningLoop(t),
		Journal:  j,
		Delivery: func() (int64, int64) { return 1234, 5 },
		Clients:  func() int { return 2 },
		Frames:   func() int64 { return 99 },
		Started:  time.Now().Add(-time.Hour),
	})
}

func TestStatsHandler(t *testing.T) {
	j := &fakeJournal{entries: []journal.Entry{
		{ID: "a", Action: "purchase", Outcome: journal.OutcomeDropped, Error: "host transport unavailable", CreatedAt: time.Now()},
	}}
	h := newHandler(t, j)

	rec := httptest.NewRecorder()
	h.StatsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/info/stats?limit=5000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRecent, j.limit)

	var resp struct {
		Success bool  `json:"success"`
		Data    Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 1234, resp.Data.Delivered)
	assert.EqualValues(t, 5, resp.Data.Dropped)
	assert.Equal(t, 2, resp.Data.RenderClients)
	assert.EqualValues(t, 99, resp.Data.RenderedFrames)
	assert.Equal(t, 4, resp.Data.JournalCounts[journal.OutcomeDelivered])
	require.Len(t, resp.Data.Recent, 1)
	require.NotNil(t, resp.Data.Session)
	assert.Equal(t, session.PhaseHidden, resp.Data.Session.Phase)
	assert.Empty(t, resp.Data.Session.SessionID)
}

func TestInfoPageRenders(t *testing.T) {
	j := &fakeJournal{entries: []journal.Entry{
		{ID: "a", Action: "addToCart", BodyJSON: `{"itemName":"weapon_bat"}`, Outcome: journal.OutcomeDelivered, CreatedAt: time.Now()},
	}}
	h := newHandler(t, j)

	rec := httptest.NewRecorder()
	h.InfoPageHandler(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRecent, j.limit)

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "1,234")
	assert.Contains(t, body, "addToCart")
	assert.Contains(t, body, "weapon_bat")
	assert.Contains(t, body, "hidden")
}

func TestInfoPageSurvivesJournalErrors(t *testing.T) {
	h := newHandler(t, &fakeJournal{err: errors.New("database is locked")})

	rec := httptest.NewRecorder()
	h.InfoPageHandler(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoSources(t *testing.T) {
	h := NewHandler(Sources{})
	rec := httptest.NewRecorder()
	h.InfoPageHandler(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session loop not responding")
}

func TestStatsReportCatalogOfOpenSession(t *testing.T) {
	loop := runningLoop(t)
	msg, err := session.DecodeMessage([]byte(`{"action":"openUI","data":{
		"categories":[
			{"category":"weapons","items":[{"name":"weapon_pistol","price":100,"stock":3},{"name":"weapon_bat","price":10,"stock":-1}]},
			{"category":"drugs","items":[{"name":"weed","price":40,"stock":9}]}
		]}}`))
	require.NoError(t, err)
	require.NoError(t, loop.Do(context.Background(), func(s *session.Session) error { return s.HandleMessage(msg) }))

	stats := NewHandler(Sources{Loop: loop}).collect(context.Background(), defaultRecent)
	require.NotNil(t, stats.Session)
	assert.NotEmpty(t, stats.Session.SessionID)
	assert.Equal(t, 2, stats.Session.Categories)
	assert.Equal(t, 3, stats.Session.Items)
	assert.NotEmpty(t, stats.Session.CatalogAge)
}
