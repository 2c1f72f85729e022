package auth

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/model"
)

type userFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// RequireUser loads the session user into the request context.
// Unauthenticated requests are handed to onMissing.
func RequireUser(sessions *Sessions, users userFinder, onMissing http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.UserID(r)
			if err != nil {
				onMissing(w, r)
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				logger.WithError(err).WithField("user_id", userID).Error("failed to load session user")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				logger.WithField("user_id", userID).Warn("session refers to a missing user")
				sessions.Clear(w)
				onMissing(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RedirectToLogin is the onMissing behaviour for HTML pages.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Unauthorized is the onMissing behaviour for the JSON API.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
