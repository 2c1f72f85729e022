package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/ledger"
	"tradejournal/src/repository"
)

type testApp struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newTestApp(t *testing.T, cfg *Config) *testApp {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:          database.DriverSQLite,
		DatabaseURLMain: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		GormLogLevel:    1,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := repository.NewUserRepository(db)
	h := NewRouter(Deps{
		Ledger:     ledger.New(repository.NewJournalRepository(db), ledger.DefaultConfig()),
		Users:      users,
		Exceptions: repository.NewExceptionRepository(db),
		Sessions:   auth.NewSessions("test-secret", time.Hour, false),
		Config:     cfg,
	})

	return &testApp{t: t, handler: h}
}

func (a *testApp) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	if set := rr.Result().Cookies(); len(set) > 0 {
		a.cookies = set
	}
	return rr
}

func TestHealthcheck(t *testing.T) {
	app := newTestApp(t, &Config{})
	rr := app.do(http.MethodGet, "/healthcheck", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t, &Config{})

	for _, path := range []string{"/", "/dashboard", "/export", "/set-equity", "/edit/x", "/delete/x"} {
		rr := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code, path)
		assert.Equal(t, "/login", rr.Header().Get("Location"), path)
	}

	for _, path := range []string{"/api/trades", "/api/stats", "/api/me"} {
		rr := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestJournalFlow(t *testing.T) {
	app := newTestApp(t, &Config{})

	rr := app.do(http.MethodPost, "/register", url.Values{"username": {"trader"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = app.do(http.MethodPost, "/login", url.Values{"username": {"trader"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.NotEmpty(t, app.cookies)

	tradeA := url.Values{
		"date": {"2025-01-02T10:00"}, "direction": {"Buy"}, "result": {"TP"},
		"lot": {"1"}, "open_price": {"1900"}, "sl": {"1890"}, "tp": {"1910"},
	}

	// no starting equity yet
	rr = app.do(http.MethodPost, "/", tradeA)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = app.do(http.MethodPost, "/set-equity", url.Values{"amount": {"1000"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = app.do(http.MethodPost, "/", tradeA)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = app.do(http.MethodPost, "/", url.Values{
		"date": {"2025-01-02T11:00"}, "direction": {"Sell"}, "result": {"SL"},
		"lot": {"1"}, "open_price": {"2000"}, "sl": {"2010"}, "tp": {"1990"}, "note": {"faded the move"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	trades := listTrades(t, app)
	require.Len(t, trades, 2)
	assert.Equal(t, "3000", trades[0]["equity_after"])
	assert.Equal(t, "2000", trades[1]["equity_after"])

	rr = app.do(http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2025-01-02 11:00:00,2000,1,2000,2010,1990,SL,Sell - faded the move,3000")

	rr = app.do(http.MethodGet, "/delete/"+trades[1]["id"].(string), nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	trades = listTrades(t, app)
	require.Len(t, trades, 1)
	assert.Equal(t, "1000", trades[0]["equity"])
	assert.Equal(t, "2000", trades[0]["equity_after"])

	rr = app.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats ledger.Statistics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.True(t, stats.TotalProfit.Equal(decimal.NewFromInt(1000)))

	rr = app.do(http.MethodGet, "/dashboard?date_from=2025-01-01&date_to=2025-01-31", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = app.do(http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	rr = app.do(http.MethodGet, "/", nil)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestOwnersAreIsolated(t *testing.T) {
	app := newTestApp(t, &Config{})

	for _, name := range []string{"alice", "bob"} {
		app.cookies = nil
		app.do(http.MethodPost, "/register", url.Values{"username": {name}, "password": {"secret1"}})
	}

	app.cookies = nil
	app.do(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	app.do(http.MethodPost, "/set-equity", url.Values{"amount": {"500"}})
	app.do(http.MethodPost, "/", url.Values{
		"direction": {"Buy"}, "result": {"SL"}, "lot": {"0.1"}, "open_price": {"100"}, "sl": {"99"}, "tp": {"102"},
	})
	aliceTrades := listTrades(t, app)
	require.Len(t, aliceTrades, 1)

	app.cookies = nil
	app.do(http.MethodPost, "/login", url.Values{"username": {"bob"}, "password": {"secret1"}})
	assert.Empty(t, listTrades(t, app))

	rr := app.do(http.MethodGet, "/delete/"+aliceTrades[0]["id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t, &Config{CORSAllowedOrigins: []string{"https://journal.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/trades", nil)
	req.Header.Set("Origin", "https://journal.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://journal.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func listTrades(t *testing.T, app *testApp) []map[string]interface{} {
	t.Helper()
	rr := app.do(http.MethodGet, "/api/trades", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var trades []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trades))
	return trades
}
