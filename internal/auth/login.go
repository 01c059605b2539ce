package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// LocalUsers verifies credentials against the users table, with an
// env-configured admin fallback for bootstrap.
type LocalUsers struct {
	DB            *sql.DB
	AdminUser     string
	AdminPassHash string // bcrypt; empty disables the fallback
}

// Verify returns (userID, role) on success.
func (l *LocalUsers) Verify(r *http.Request, username, password string) (string, string, bool) {
	var id, hash, role string
	err := l.DB.QueryRowContext(r.Context(),
		`SELECT id, password_hash, role FROM users WHERE username=$1`, username).
		Scan(&id, &hash, &role)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return "", "", false
		}
		return id, role, true
	case errors.Is(err, sql.ErrNoRows):
		if l.AdminPassHash != "" && username == l.AdminUser &&
			bcrypt.CompareHashAndPassword([]byte(l.AdminPassHash), []byte(password)) == nil {
			return l.AdminUser, "admin", true
		}
		return "", "", false
	default:
		return "", "", false
	}
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users *LocalUsers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub, role, ok := users.Verify(r, req.Username, req.Password)
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(sub, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}
