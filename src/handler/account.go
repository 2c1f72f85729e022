package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tradejournal/src/auth"
	"tradejournal/src/model"
	"tradejournal/src/repository"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 60
)

type userStore interface {
	GetUserByUserName(ctx context.Context, userName string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
}

type sessionIssuer interface {
	Issue(w http.ResponseWriter, userID uint, username string) error
	Clear(w http.ResponseWriter)
}

type authPage struct {
	base
	Action   string
	Username string
}

func loginPage(username, errMsg string) authPage {
	return authPage{base: base{Title: "Login", Error: errMsg}, Action: "/login", Username: username}
}

func registerPage(username, errMsg string) authPage {
	return authPage{base: base{Title: "Register", Error: errMsg}, Action: "/register", Username: username}
}

// LoginHandler shows the login form and starts a session on valid credentials.
func LoginHandler(users userStore, sessions sessionIssuer, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			render(w, http.StatusOK, pageLogin, loginPage("", ""))
			return
		}

		username := strings.TrimSpace(r.PostFormValue("username"))
		password := r.PostFormValue("password")

		user, err := users.GetUserByUserName(r.Context(), username)
		if err != nil {
			capture(r, exc, "account_handler", "Login", err, map[string]interface{}{"username": username})
			render(w, http.StatusInternalServerError, pageLogin, loginPage(username, messageFor(err)))
			return
		}

		if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			logger.WithField("username", username).Warn("login failed")
			render(w, http.StatusUnauthorized, pageLogin, loginPage(username, "Invalid username or password."))
			return
		}

		if err := sessions.Issue(w, user.ID, user.Username); err != nil {
			capture(r, exc, "account_handler", "Login", err, map[string]interface{}{"user_id": user.ID})
			render(w, http.StatusInternalServerError, pageLogin, loginPage(username, messageFor(err)))
			return
		}

		logger.WithField("user_id", user.ID).Info("user logged in")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// RegisterHandler creates an account with a bcrypt-hashed password.
func RegisterHandler(users userStore, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			render(w, http.StatusOK, pageLogin, registerPage("", ""))
			return
		}

		username := strings.TrimSpace(r.PostFormValue("username"))
		password := r.PostFormValue("password")

		if username == "" || len(username) > maxUsernameLength {
			render(w, http.StatusBadRequest, pageLogin, registerPage(username, "Username must be between 1 and 60 characters."))
			return
		}
		if len(password) < minPasswordLength {
			render(w, http.StatusBadRequest, pageLogin, registerPage(username, "Password must be at least 6 characters."))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			capture(r, exc, "account_handler", "Register", err, nil)
			render(w, http.StatusInternalServerError, pageLogin, registerPage(username, messageFor(err)))
			return
		}

		err = users.Create(r.Context(), &model.User{Username: username, Password: string(hashedPassword)})
		if errors.Is(err, repository.ErrUsernameTaken) {
			render(w, http.StatusConflict, pageLogin, registerPage(username, "Username already taken."))
			return
		}
		if err != nil {
			capture(r, exc, "account_handler", "Register", err, map[string]interface{}{"username": username})
			render(w, http.StatusInternalServerError, pageLogin, registerPage(username, messageFor(err)))
			return
		}

		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func LogoutHandler(sessions sessionIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Clear(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// CurrentUserHandler returns the session user as JSON.
func CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			auth.Unauthorized(w, r)
			return
		}
		writeJSON(w, http.StatusOK, user.ToResponse())
	}
}

type changePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordHandler replaces the session user's password after checking the current one.
func ChangePasswordHandler(users userStore, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			logger.Warn("user not found in context during password change")
			auth.Unauthorized(w, r)
			return
		}

		var payload changePasswordPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid change password payload")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		if payload.CurrentPassword == "" || len(payload.NewPassword) < minPasswordLength {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current password and a new password of at least 6 characters are required"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.CurrentPassword)); err != nil {
			logger.WithField("user_id", user.ID).Warn("current password mismatch")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid current password"})
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			failJSON(w, r, exc, "ChangePassword", err)
			return
		}

		user.Password = string(hashedPassword)
		user.UpdatedAt = time.Now()

		if err := users.Update(r.Context(), user); err != nil {
			failJSON(w, r, exc, "ChangePassword", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
	}
}
