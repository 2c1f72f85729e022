package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "tj_session"
	issuer            = "tradejournal"
)

var ErrInvalidSession = errors.New("invalid session")

type Claims struct {
	Username string `json:"username"`

	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens carried in an HttpOnly cookie.
type Sessions struct {
	Secret       []byte
	TTL          time.Duration
	SecureCookie bool

	now func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{
		Secret:       []byte(secret),
		TTL:          ttl,
		SecureCookie: secure,
		now:          time.Now,
	}
}

func (s *Sessions) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// Sign creates a token whose subject is the user id.
func (s *Sessions) Sign(userID uint, username string) (token string, expiresAt time.Time, err error) {
	now := s.clock()
	expiresAt = now.Add(s.TTL)

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify returns the user id carried by a valid, unexpired token.
func (s *Sessions) Verify(token string) (uint, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return 0, ErrInvalidSession
	}

	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidSession
	}

	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return uint(id), nil
}

// Issue signs a token for the user and sets it as the session cookie.
func (s *Sessions) Issue(w http.ResponseWriter, userID uint, username string) error {
	token, expiresAt, err := s.Sign(userID, username)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID reads and verifies the session cookie of r.
func (s *Sessions) UserID(r *http.Request) (uint, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return 0, ErrInvalidSession
	}
	return s.Verify(c.Value)
}
