package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"delive/storefront/internal/domain"
	"delive/storefront/internal/service"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const SessionCookie = "delive_session"

var errInvalidSessionToken = errors.New("invalid session token")

type sessionKey struct{}

// sessionState is the per-request view of the browser session.
type sessionState struct {
	ID      string
	Session *domain.Session
	// retired ids are deleted from the store once the session is saved
	// under ID.
	retired []string
}

func sessionFrom(ctx context.Context) *sessionState {
	state, _ := ctx.Value(sessionKey{}).(*sessionState)
	return state
}

// currentSession never returns nil, so guards and handlers can work on
// requests that bypassed the session middleware.
func currentSession(r *http.Request) *domain.Session {
	if state := sessionFrom(r.Context()); state != nil {
		return state.Session
	}
	return domain.NewSession()
}

// SessionManager issues signed session cookies and keeps the session body in
// the store. The cookie holds only the session id as the jti of an HS256
// token.
type SessionManager struct {
	Store  service.SessionStore
	secret []byte
	ttl    time.Duration
	secure bool
	logger logrus.FieldLogger
}

func NewSessionManager(store service.SessionStore, secret string, ttl time.Duration, secure bool, logger logrus.FieldLogger) *SessionManager {
	return &SessionManager{
		Store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		logger: logger.WithField("component", "sessions"),
	}
}

func (m *SessionManager) sign(id string) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Id:        id,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(m.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *SessionManager) parse(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errInvalidSessionToken
	}
	if _, err := uuid.Parse(claims.Id); err != nil {
		return "", errInvalidSessionToken
	}
	return claims.Id, nil
}

func (m *SessionManager) setCookie(w http.ResponseWriter, id string) error {
	token, err := m.sign(id)
	if err != nil {
		return err
	}
	w.Header().Del("Set-Cookie")
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *SessionManager) load(r *http.Request) (*sessionState, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return &sessionState{ID: uuid.NewString(), Session: domain.NewSession()}, nil
	}
	id, err := m.parse(cookie.Value)
	if err != nil {
		m.logger.WithError(err).Debug("discarding session cookie")
		return &sessionState{ID: uuid.NewString(), Session: domain.NewSession()}, nil
	}
	sess, err := m.Store.Load(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &sessionState{ID: id, Session: sess}, nil
}

// Middleware loads the session before the handler runs and saves it before
// the first byte of the response goes out, so a client never sees success
// for a change that was not stored. The cookie is reissued on every request
// so that its expiry slides with the stored record.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, err := m.load(r)
		if err != nil {
			m.logger.WithError(err).Error("session unavailable")
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		if err := m.setCookie(w, state.ID); err != nil {
			m.logger.WithError(err).Error("sign session cookie")
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}

		sw := &sessionWriter{ResponseWriter: w, save: func() error {
			err := m.save(context.WithoutCancel(r.Context()), state)
			if err != nil {
				m.logger.WithError(err).WithField("path", r.URL.Path).Error("failed to save session")
			}
			return err
		}}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), sessionKey{}, state)))
		sw.commit()
	})
}

// sessionWriter saves the session on the first WriteHeader or Write. When
// the save fails it answers 500 instead and drops whatever the handler
// writes afterwards.
type sessionWriter struct {
	http.ResponseWriter
	save      func() error
	committed bool
	failed    bool
}

func (w *sessionWriter) commit() bool {
	if w.committed {
		return !w.failed
	}
	w.committed = true
	if err := w.save(); err != nil {
		w.failed = true
		h := w.ResponseWriter.Header()
		h.Del("Location")
		h.Del("Cache-Control")
		h.Del("Set-Cookie")
		writeError(w.ResponseWriter, http.StatusInternalServerError, msgInternal)
	}
	return !w.failed
}

func (w *sessionWriter) WriteHeader(code int) {
	if w.commit() {
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.commit() {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (m *SessionManager) save(ctx context.Context, state *sessionState) error {
	if err := m.Store.Save(ctx, state.ID, state.Session); err != nil {
		return err
	}
	for _, id := range state.retired {
		if err := m.Store.Delete(ctx, id); err != nil {
			m.logger.WithError(err).Warn("failed to delete previous session")
		}
	}
	state.retired = nil
	return nil
}

// Rotate moves the session to a fresh id, used when the user identity
// changes. It must run before the response is written. The old record is
// removed only after the session is stored under the new id.
func (m *SessionManager) Rotate(w http.ResponseWriter, r *http.Request) error {
	state := sessionFrom(r.Context())
	if state == nil {
		return nil
	}
	old := state.ID
	state.ID = uuid.NewString()
	if err := m.setCookie(w, state.ID); err != nil {
		state.ID = old
		return err
	}
	state.retired = append(state.retired, old)
	return nil
}
