package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the request-scoped caller: user id plus role flag. It is
// injected by the session middleware and carried on the request context;
// nothing identity-related lives in package state.
type Identity struct {
	UserID int64
	Admin  bool
}

type identityKey struct{}

const (
	sessionCookie = "session"
	adminCookie   = "admin_session"
	sessionTTL    = 24 * time.Hour
)

type sessionClaims struct {
	UserID int64 `json:"user_id"`
	Admin  bool  `json:"admin"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(id Identity) (string, error) {
	claims := sessionClaims{
		UserID: id.UserID,
		Admin:  id.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) parseToken(tokenString string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid session")
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok {
		return nil, errors.New("invalid session claims")
	}
	return claims, nil
}

func (h *Handler) setSession(w http.ResponseWriter, name string, id Identity) error {
	token, err := h.generateToken(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.production,
	})
	return nil
}

func clearSession(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (h *Handler) identityFromCookie(r *http.Request, cookieName string) (Identity, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}
	claims, err := h.parseToken(cookie.Value)
	if err != nil {
		return Identity{}, false
	}
	return Identity{UserID: claims.UserID, Admin: claims.Admin}, true
}

// requireSession guards shopper endpoints.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.identityFromCookie(r, sessionCookie)
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// requireAdminSession guards back-office endpoints. The admin flag is an
// independent session: a shopper cookie never grants admin access.
func (h *Handler) requireAdminSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.identityFromCookie(r, adminCookie)
		if !ok || !id.Admin {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// requireAnySession accepts either session; used where the owning user or
// an admin may act.
func (h *Handler) requireAnySession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := h.identityFromCookie(r, adminCookie); ok && id.Admin {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
			return
		}
		if id, ok := h.identityFromCookie(r, sessionCookie); ok {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
			return
		}
		respondError(w, http.StatusUnauthorized, "unauthorized")
	})
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(r *http.Request) Identity {
	id, _ := r.Context().Value(identityKey{}).(Identity)
	return id
}
