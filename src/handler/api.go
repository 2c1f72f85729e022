package handler

import (
	"net/http"

	"tradejournal/src/auth"
	"tradejournal/src/model"
)

// TradesAPIHandler lists the session user's trades, newest first, optionally within from/to (YYYY-MM-DD).
func TradesAPIHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			auth.Unauthorized(w, r)
			return
		}

		opts, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			failJSON(w, r, exc, "ListTrades", err)
			return
		}
		opts.NewestFirst = true

		trades, err := j.Trades(r.Context(), user.ID, opts)
		if err != nil {
			failJSON(w, r, exc, "ListTrades", err)
			return
		}
		if trades == nil {
			trades = []model.Trade{}
		}

		writeJSON(w, http.StatusOK, trades)
	}
}

// StatsAPIHandler returns win/loss statistics for the session user over an optional date range.
func StatsAPIHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			auth.Unauthorized(w, r)
			return
		}

		opts, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			failJSON(w, r, exc, "Statistics", err)
			return
		}

		stats, err := j.Statistics(r.Context(), user.ID, opts)
		if err != nil {
			failJSON(w, r, exc, "Statistics", err)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}
