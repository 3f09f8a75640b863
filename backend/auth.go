package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

// UserIDKey is the key type for storing user ID in context
type UserIDKey string

const userIDKey UserIDKey = "userID"

func withUserID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func userIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok && id > 0
}

// tokenIssuer signs and verifies session tokens.
// Claims: user_id (number) and expires (unix seconds).
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(secret string, ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *tokenIssuer) issue(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"expires": t.now().Add(t.ttl).Unix(),
	})
	return token.SignedString(t.secret)
}

func (t *tokenIssuer) parse(tokenStr string) (int, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	// jwt.MapClaims stores numbers as float64 by default
	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return 0, false
	}
	if exp, ok := claims["expires"].(float64); ok && t.now().Unix() > int64(exp) {
		return 0, false
	}
	return int(uid), true
}

// userIDFromRequest accepts a Bearer header or, for websocket upgrades where
// browsers cannot set headers, a ?token= query parameter.
func (t *tokenIssuer) userIDFromRequest(r *http.Request) (int, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return t.parse(strings.TrimPrefix(auth, "Bearer "))
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return t.parse(q)
	}
	return 0, false
}

func (a *app) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.tokens.userIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *credentialsRequest) normalize() bool {
	c.Email = strings.TrimSpace(c.Email)
	c.Password = strings.TrimSpace(c.Password)
	return c.Email != "" && c.Password != ""
}

func registerHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !req.normalize() {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			a.log.Error("hash password", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "hash_error")
			return
		}

		newID, err := a.users.Create(r.Context(), req.Email, string(hashedPassword))
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		if err != nil {
			a.log.Error("save user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "register_error")
			return
		}

		// Sign the new user in straight away
		tokenString, err := a.tokens.issue(newID)
		if err != nil {
			a.log.Error("issue token", zap.Int("user_id", newID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"token": tokenString, "id": newID})
	}
}

func loginHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !req.normalize() {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		userID, passwordHash, err := a.users.Credentials(r.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if err != nil {
			a.log.Error("query user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		tokenString, err := a.tokens.issue(userID)
		if err != nil {
			a.log.Error("issue token", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"token": tokenString, "id": userID})
	}
}
