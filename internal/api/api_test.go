package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/api/apierr"
	"github.com/mcoot/battlerelay/internal/api/response"
	"github.com/mcoot/battlerelay/internal/dependencies/mocks"
	"github.com/mcoot/battlerelay/internal/metrics"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/session"
	"github.com/mcoot/battlerelay/internal/storage"
	"github.com/mcoot/battlerelay/internal/storage/memory"
	"github.com/mcoot/battlerelay/internal/testutil"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// testServer wires the HTTP surface over real in-memory state
type testServer struct {
	handler  http.Handler
	clock    *mocks.MockClock
	store    *session.Store
	monitor  *abuse.Monitor
	counters storage.CounterStore
	started  time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithCounters(t, memory.New())
}

func newTestServerWithCounters(t *testing.T, counters storage.CounterStore) *testServer {
	t.Helper()

	logger := testutil.NopLogger()
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := mocks.NewMockClock(started)
	table := weapons.Default()
	store := session.New(table, clk, mocks.NewMockRandom(), logger)
	monitor := abuse.NewMonitor(abuse.DefaultConfig(), counters, table, clk, logger)

	router := NewRouter(RouterConfig{
		Logger:    logger,
		Store:     store,
		Weapons:   table,
		Monitor:   monitor,
		Clock:     clk,
		Version:   "2.0.0",
		StartedAt: started,
		Metrics:   metrics.New().Handler(),
	})

	return &testServer{
		handler:  router,
		clock:    clk,
		store:    store,
		monitor:  monitor,
		counters: counters,
		started:  started,
	}
}

func (ts *testServer) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Create("a", model.JoinRequest{Name: "Alice"})
	ts.clock.Advance(90 * time.Second)

	rec := ts.request(http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[response.Status](t, rec)
	assert.Equal(t, "Airsoft AR Battle Server", status.Status)
	assert.Equal(t, "2.0.0", status.Version)
	assert.Equal(t, 1, status.Players)
	assert.InDelta(t, 90.0, status.Uptime, 1e-9)
	assert.Equal(t, "Real-Time PvP", status.Mode)
}

func TestPlayers_TeamCounts(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Create("a", model.JoinRequest{Name: "Alice", Team: "red"})
	ts.clock.Advance(time.Second)
	ts.store.Create("b", model.JoinRequest{Name: "Bob", Team: "blue"})
	_, err := ts.store.ApplyDamage("b", 30, "a")
	require.NoError(t, err)

	rec := ts.request(http.MethodGet, "/api/players")
	require.Equal(t, http.StatusOK, rec.Code)

	players := decode[response.Players](t, rec)
	assert.True(t, players.Success)
	assert.Equal(t, 2, players.Total)
	assert.Equal(t, 1, players.Red)
	assert.Equal(t, 1, players.Blue)
	require.Len(t, players.Players, 2)
	assert.Equal(t, response.Player{
		ID: "b", Name: "Bob", Team: "blue", Alive: true, Health: 70, Weapon: "rifle",
	}, players.Players[1])
}

func TestPlayers_EmptyRosterIsAnArray(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodGet, "/api/players")
	assert.JSONEq(t, `{"success":true,"total":0,"red":0,"blue":0,"players":[]}`, rec.Body.String())
}

func TestPlayerDetail(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Create("a", model.JoinRequest{Name: "Alice"})

	rec := ts.request(http.MethodGet, "/api/players/a")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decode[response.PlayerDetail](t, rec).Player.Name)

	rec = ts.request(http.MethodGet, "/api/players/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, decode[apierr.ErrorResponse](t, rec).Error.Code)
}

func TestWeapons(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodGet, "/api/shooting/weapons")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[response.Weapons](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "rifle", body.DefaultWeapon)
	require.Contains(t, body.Weapons, model.WeaponID("sniper"))
	assert.Equal(t, model.WeaponSpec{
		Name: "Sniper", Damage: 100, Accuracy: 95, Range: 200, FireRate: 1200, ReloadTime: 4000, Ammo: 5, MaxAmmo: 5,
	}, body.Weapons["sniper"])

	rec = ts.request(http.MethodGet, "/api/shooting/weapons/smg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, decode[response.Weapon](t, rec).Weapon.Damage)

	rec = ts.request(http.MethodGet, "/api/shooting/weapons/railgun")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierr.CodeWeaponNotFound, decode[apierr.ErrorResponse](t, rec).Error.Code)
}

func TestAntiCheatStatus(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.monitor.FlagSuspicious(ctx, "a", "test")
	_, err := ts.counters.Incr(ctx, storage.CounterRateLimits)
	require.NoError(t, err)

	rec := ts.request(http.MethodGet, "/api/anti-cheat/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"data": {
			"suspiciousActivities": 1,
			"rateLimits": 1,
			"system": "active",
			"lastCleanup": "2024-01-01T12:00:00Z"
		}
	}`, rec.Body.String())
}

type brokenCounters struct{ memory.Storage }

func (*brokenCounters) Counters(context.Context) (storage.Counters, error) {
	return storage.Counters{}, assert.AnError
}

func TestAntiCheatStatus_CounterStoreDown(t *testing.T) {
	ts := newTestServerWithCounters(t, &brokenCounters{})

	rec := ts.request(http.MethodGet, "/api/anti-cheat/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apierr.CodeServiceUnavailable, decode[apierr.ErrorResponse](t, rec).Error.Code)
}

func TestReadsDoNotMutateState(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Create("a", model.JoinRequest{Name: "Alice"})
	before := ts.store.Snapshot()

	for _, path := range []string{"/", "/api/players", "/api/players/a", "/api/shooting/weapons", "/api/anti-cheat/status"} {
		ts.request(http.MethodGet, path)
	}

	assert.Equal(t, before, ts.store.Snapshot())
}

func TestNotFoundListsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodGet, "/api/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode[apierr.ErrorResponse](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, apierr.CodeNotFound, body.Error.Code)
	assert.Equal(t, Endpoints, body.Endpoints)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodPost, "/api/players")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, apierr.CodeMethodNotAllowed, decode[apierr.ErrorResponse](t, rec).Error.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "battlerelay_players")
}

func TestPanicBecomesInternalError(t *testing.T) {
	h := apiMiddleware(testutil.NopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`, rec.Body.String())
}
