package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/ledger"
)

// statusFor maps ledger errors onto HTTP status codes. Anything unknown is a 500.
func statusFor(err error) int {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoBaseline):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ledger.ErrNoBaseline):
		return "Set your starting equity before recording trades."
	case errors.Is(err, ledger.ErrNotFound):
		return "Trade not found."
	case errors.Is(err, ledger.ErrUnauthenticated):
		return "Please log in."
	default:
		return "Something went wrong. Please try again."
	}
}

// failPage answers an HTML request that could not be completed and has no form to re-render.
func failPage(w http.ResponseWriter, r *http.Request, exc exceptionRecorder, method string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusUnauthorized:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case http.StatusInternalServerError:
		capture(r, exc, "journal_handler", method, err, nil)
	default:
		logger.WithError(err).WithField("path", r.URL.Path).Warn("request rejected")
	}

	user, _ := userFrom(r)
	render(w, status, pageError, base{Title: http.StatusText(status), User: user, Error: messageFor(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode json response")
	}
}

// failJSON answers an API request with {"error": ...} and the mapped status.
func failJSON(w http.ResponseWriter, r *http.Request, exc exceptionRecorder, method string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		capture(r, exc, "api_handler", method, err, nil)
	} else {
		logger.WithError(err).WithField("path", r.URL.Path).Warn("api request rejected")
	}
	writeJSON(w, status, map[string]string{"error": messageFor(err)})
}
