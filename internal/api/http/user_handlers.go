package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/classmark/classmark-engine/internal/auth"
	"github.com/classmark/classmark-engine/internal/rbac"
)

type userRow struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Password string   `json:"password,omitempty"`  // plaintext on upsert only
	ParentOf []string `json:"parent_of,omitempty"` // parent role: linked student ids
}

// POST /users/bulk — teacher/admin provisioning of student and parent
// accounts. A parent row's parent_of list replaces that parent's
// guardian links.
func BulkUpsertUsersHandler(db *sql.DB, guardians *auth.Guardians) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", 400)
			return
		}
		upserted := 0
		for _, row := range rows {
			if row.ID == "" || row.Username == "" {
				http.Error(w, "id and username required", 400)
				return
			}
			role := row.Role
			if role == "" {
				role = "student"
			}
			hash := []byte{}
			if row.Password != "" {
				h, err := bcrypt.GenerateFromPassword([]byte(row.Password), 12)
				if err != nil {
					http.Error(w, err.Error(), 500)
					return
				}
				hash = h
			}
			_, err := db.ExecContext(r.Context(),
				`INSERT INTO users (id,username,password_hash,role) VALUES ($1,$2,$3,$4)
				 ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username, role=EXCLUDED.role,
				   password_hash=CASE WHEN EXCLUDED.password_hash != '' THEN EXCLUDED.password_hash ELSE users.password_hash END`,
				row.ID, row.Username, string(hash), role)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			if role == "parent" && len(row.ParentOf) > 0 {
				if err := guardians.Link(r.Context(), row.ID, row.ParentOf); err != nil {
					http.Error(w, err.Error(), 500)
					return
				}
			}
			upserted++
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"upserted": upserted})
	}
}

// GET /users?role=
func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		q := `SELECT id,username,role FROM users`
		args := []interface{}{}
		if role != "" {
			q += ` WHERE role=$1`
			args = append(args, role)
		}
		rows, err := db.QueryContext(r.Context(), q+` ORDER BY username`, args...)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			out = append(out, u)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /users/change-password
func ChangePasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.NewPassword == "" {
			http.Error(w, "new password required", http.StatusBadRequest)
			return
		}

		var storedHash string
		err := db.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&storedHash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(r.Context(), `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "password changed"})
	}
}
